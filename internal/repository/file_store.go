package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"taskmanager/internal/apperror"
	"taskmanager/internal/models"
)

type fileUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"createdAt"`
}

// document is the on-disk layout: one JSON object holding every record.
type document struct {
	Users []fileUser    `json:"users"`
	Tasks []models.Task `json:"tasks"`
}

func (d document) clone() document {
	return document{
		Users: append([]fileUser(nil), d.Users...),
		Tasks: append([]models.Task(nil), d.Tasks...),
	}
}

func (d document) hasUser(id string) bool {
	for _, u := range d.Users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func (d document) taskIndex(id string) int {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// FileStore keeps the whole collection in memory and rewrites the JSON
// document on every mutation. Mutations hold the write lock for the full
// clone-modify-persist-swap cycle, so they are linearizable; readers only see
// snapshots that are already on disk.
type FileStore struct {
	path string
	now  func() time.Time

	mu  sync.RWMutex
	doc document
}

// NewFileStore opens the document at path, creating an empty one if absent.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, now: time.Now}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.doc = document{Users: []fileUser{}, Tasks: []models.Task{}}
		if err := s.persist(s.doc); err != nil {
			return apperror.Storage("initialize data file", err)
		}
		return nil
	}
	if err != nil {
		return apperror.Storage("read data file", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return apperror.Storage("decode data file", err)
	}
	if doc.Users == nil {
		doc.Users = []fileUser{}
	}
	if doc.Tasks == nil {
		doc.Tasks = []models.Task{}
	}
	s.doc = doc
	return nil
}

// persist writes doc to a temp file in the same directory and renames it over
// the target, so a crash never leaves a half-written document.
func (s *FileStore) persist(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

// mutate runs fn against a copy of the document and commits it only when
// the write to disk succeeds.
func (s *FileStore) mutate(op string, fn func(doc *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.persist(next); err != nil {
		return apperror.Storage(op, err)
	}
	s.doc = next
	return nil
}

func (s *FileStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.mutate("create user", func(doc *document) error {
		for _, u := range doc.Users {
			if u.Username == user.Username || u.Email == user.Email {
				return errUserExists
			}
		}
		if err := newUser(user, s.now()); err != nil {
			return err
		}
		doc.Users = append(doc.Users, fileUser{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			Password:  user.PasswordHash,
			CreatedAt: user.CreatedAt,
		})
		return nil
	})
}

func (s *FileStore) findUser(match func(fileUser) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.doc.Users {
		if match(u) {
			return &models.User{
				ID:           u.ID,
				Username:     u.Username,
				Email:        u.Email,
				PasswordHash: u.Password,
				CreatedAt:    u.CreatedAt,
			}, nil
		}
	}
	return nil, errUserNotFound
}

func (s *FileStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(func(u fileUser) bool { return u.ID == id })
}

func (s *FileStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(func(u fileUser) bool { return u.Email == email })
}

func (s *FileStore) CreateTask(ctx context.Context, ownerID string, fields models.TaskFields) (*models.Task, error) {
	var created models.Task
	err := s.mutate("create task", func(doc *document) error {
		if !doc.hasUser(ownerID) {
			return errUnknownOwner
		}
		task, err := newTask(ownerID, fields, s.now())
		if err != nil {
			return err
		}
		doc.Tasks = append(doc.Tasks, task)
		created = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *FileStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.doc.taskIndex(id)
	if i < 0 {
		return nil, errTaskNotFound
	}
	task := s.doc.Tasks[i]
	return &task, nil
}

func (s *FileStore) ListTasksByOwner(ctx context.Context, ownerID string) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := []models.Task{}
	for _, t := range s.doc.Tasks {
		if t.OwnerID == ownerID {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (s *FileStore) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	var updated models.Task
	err := s.mutate("update task", func(doc *document) error {
		i := doc.taskIndex(id)
		if i < 0 {
			return errTaskNotFound
		}
		patch.Apply(&doc.Tasks[i], s.now())
		updated = doc.Tasks[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *FileStore) DeleteTask(ctx context.Context, id string) error {
	return s.mutate("delete task", func(doc *document) error {
		i := doc.taskIndex(id)
		if i < 0 {
			return errTaskNotFound
		}
		doc.Tasks = append(doc.Tasks[:i], doc.Tasks[i+1:]...)
		return nil
	})
}

func (s *FileStore) Close() error {
	return nil
}
