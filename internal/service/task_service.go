package service

import (
	"context"
	"strings"
	"time"

	"taskmanager/internal/apperror"
	"taskmanager/internal/models"
	"taskmanager/internal/query"
	"taskmanager/internal/repository"
	"taskmanager/internal/validation"
	"taskmanager/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type CreateTaskInput struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Deadline    string `json:"deadline" validate:"required"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// UpdateTaskInput is a partial update; nil fields are left as they are.
type UpdateTaskInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Deadline    *string `json:"deadline"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

type TaskList struct {
	Count int           `json:"count"`
	Data  []models.Task `json:"data"`
}

// TaskService runs the task operations on behalf of an authenticated
// identity. Ownership is checked here and nowhere else.
type TaskService struct {
	store    repository.TaskStore
	validate *validator.Validate
}

func NewTaskService(store repository.TaskStore, validate *validator.Validate) *TaskService {
	return &TaskService{store: store, validate: validate}
}

func (s *TaskService) List(ctx context.Context, id models.Identity, spec query.Spec) (*TaskList, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasksByOwner(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	data := query.Apply(tasks, spec)
	return &TaskList{Count: len(data), Data: data}, nil
}

func (s *TaskService) Create(ctx context.Context, id models.Identity, in CreateTaskInput) (*models.Task, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validation.Error(err)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperror.Validation("title", "is required")
	}
	deadline, err := ParseDeadline(in.Deadline)
	if err != nil {
		return nil, err
	}

	task, err := s.store.CreateTask(ctx, id.UserID, models.TaskFields{
		Title:       in.Title,
		Description: in.Description,
		Deadline:    deadline,
		Priority:    models.Priority(in.Priority),
	})
	if err != nil {
		return nil, err
	}
	logger.AuditLogger.Info("Task created successfully",
		zap.String("task_id", task.ID), zap.String("user_id", id.UserID))
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, id models.Identity, taskID string) (*models.Task, error) {
	return s.owned(ctx, id, taskID, "access")
}

func (s *TaskService) Update(ctx context.Context, id models.Identity, taskID string, in UpdateTaskInput) (*models.Task, error) {
	patch, err := s.patchFrom(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, id, taskID, "update"); err != nil {
		return nil, err
	}

	task, err := s.store.UpdateTask(ctx, taskID, patch)
	if err != nil {
		return nil, err
	}
	logger.AuditLogger.Info("Task updated", zap.String("task_id", taskID), zap.String("user_id", id.UserID))
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, id models.Identity, taskID string) error {
	if _, err := s.owned(ctx, id, taskID, "delete"); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	logger.AuditLogger.Info("Task deleted", zap.String("task_id", taskID), zap.String("user_id", id.UserID))
	return nil
}

// owned fetches the task and rejects callers who do not own it.
func (s *TaskService) owned(ctx context.Context, id models.Identity, taskID, action string) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != id.UserID {
		logger.SecurityLogger.Warn("Forbidden task "+action,
			zap.String("user_id", id.UserID), zap.String("task_id", taskID))
		return nil, apperror.Forbidden("Not authorized to " + action + " this task")
	}
	return task, nil
}

func (s *TaskService) patchFrom(in UpdateTaskInput) (models.TaskPatch, error) {
	var patch models.TaskPatch
	if in.Title != nil {
		if err := validation.Var(s.validate, "title", *in.Title, "required,max=100"); err != nil {
			return patch, err
		}
		if strings.TrimSpace(*in.Title) == "" {
			return patch, apperror.Validation("title", "is required")
		}
		patch.Title = in.Title
	}
	if in.Description != nil {
		if err := validation.Var(s.validate, "description", *in.Description, "max=500"); err != nil {
			return patch, err
		}
		patch.Description = in.Description
	}
	if in.Deadline != nil {
		deadline, err := ParseDeadline(*in.Deadline)
		if err != nil {
			return patch, err
		}
		patch.Deadline = &deadline
	}
	if in.Priority != nil {
		p := models.Priority(*in.Priority)
		if !p.Valid() {
			return patch, apperror.Validation("priority", "must be one of low, medium, high")
		}
		patch.Priority = &p
	}
	if in.Status != nil {
		st := models.Status(*in.Status)
		if !st.Valid() {
			return patch, apperror.Validation("status", "must be one of pending, in-progress, completed")
		}
		patch.Status = &st
	}
	if patch.Empty() {
		return patch, apperror.Validation("", "at least one field is required")
	}
	return patch, nil
}

var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDeadline accepts RFC 3339 timestamps and plain dates. Values without
// a zone are taken as UTC.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperror.Validation("deadline", "is required")
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperror.Validation("deadline", "must be a valid ISO 8601 date")
}
