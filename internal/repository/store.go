package repository

import (
	"context"
	"strings"
	"time"

	"taskmanager/internal/apperror"
	"taskmanager/internal/models"

	"github.com/google/uuid"
)

// UserStore holds credential records.
type UserStore interface {
	// CreateUser assigns ID and CreatedAt. Duplicate username or email is a Conflict.
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// TaskStore is the durable task collection. It does not check ownership;
// callers do.
type TaskStore interface {
	CreateTask(ctx context.Context, ownerID string, fields models.TaskFields) (*models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasksByOwner(ctx context.Context, ownerID string) ([]models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type Store interface {
	UserStore
	TaskStore
	Close() error
}

var (
	errTaskNotFound = apperror.NotFound("Task not found")
	errUserNotFound = apperror.NotFound("User not found")
	errUserExists   = apperror.Conflict("User already exists with this email or username")
	errUnknownOwner = apperror.Validation("ownerId", "does not reference an existing user")
)

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", apperror.Storage("generate id", err)
	}
	return id.String(), nil
}

// newTask builds a fresh record with server-assigned fields and defaults.
func newTask(ownerID string, fields models.TaskFields, now time.Time) (models.Task, error) {
	if strings.TrimSpace(fields.Title) == "" {
		return models.Task{}, apperror.Validation("title", "is required")
	}
	if fields.Deadline.IsZero() {
		return models.Task{}, apperror.Validation("deadline", "is required")
	}
	id, err := newID()
	if err != nil {
		return models.Task{}, err
	}
	priority := fields.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	now = models.Timestamp(now)
	return models.Task{
		ID:          id,
		OwnerID:     ownerID,
		Title:       fields.Title,
		Description: fields.Description,
		Deadline:    models.Timestamp(fields.Deadline),
		Priority:    priority,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func newUser(user *models.User, now time.Time) error {
	id, err := newID()
	if err != nil {
		return err
	}
	user.ID = id
	user.CreatedAt = models.Timestamp(now)
	return nil
}
