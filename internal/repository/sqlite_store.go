package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"taskmanager/internal/apperror"
	"taskmanager/internal/models"

	"gorm.io/gorm"
)

type sqliteUser struct {
	ID        string    `gorm:"primaryKey"`
	Username  string    `gorm:"uniqueIndex;not null"`
	Email     string    `gorm:"uniqueIndex;not null"`
	Password  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
}

func (sqliteUser) TableName() string { return "users" }

type sqliteTask struct {
	ID          string    `gorm:"primaryKey"`
	UserID      string    `gorm:"index;not null"`
	Title       string    `gorm:"size:100;not null"`
	Description string    `gorm:"size:500"`
	Deadline    time.Time `gorm:"not null"`
	Priority    string    `gorm:"size:16;not null"`
	Status      string    `gorm:"size:16;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

func (sqliteTask) TableName() string { return "tasks" }

func (r sqliteTask) toModel() models.Task {
	return models.Task{
		ID:          r.ID,
		OwnerID:     r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Deadline:    r.Deadline.UTC(),
		Priority:    models.Priority(r.Priority),
		Status:      models.Status(r.Status),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func sqliteTaskFrom(t models.Task) sqliteTask {
	return sqliteTask{
		ID:          t.ID,
		UserID:      t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Deadline:    t.Deadline,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// SQLiteStore is an embedded gorm-backed store. SQLite allows a single
// writer, so mutations are funneled through mu as well.
type SQLiteStore struct {
	db  *gorm.DB
	now func() time.Time
	mu  sync.Mutex
}

// NewSQLiteStore migrates the schema on db and returns the store.
func NewSQLiteStore(db *gorm.DB) (*SQLiteStore, error) {
	if err := db.AutoMigrate(&sqliteUser{}, &sqliteTask{}); err != nil {
		return nil, apperror.Storage("migrate sqlite", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&sqliteUser{}).
			Where("username = ? OR email = ?", user.Username, user.Email).
			Count(&count).Error
		if err != nil {
			return apperror.Storage("check user", err)
		}
		if count > 0 {
			return errUserExists
		}
		if err := newUser(user, s.now()); err != nil {
			return err
		}
		row := sqliteUser{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			Password:  user.PasswordHash,
			CreatedAt: user.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errUserExists
			}
			return apperror.Storage("create user", err)
		}
		return nil
	})
}

func (s *SQLiteStore) findUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var row sqliteUser
	err := s.db.WithContext(ctx).First(&row, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, apperror.Storage("find user", err)
	}
	return &models.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.Password,
		CreatedAt:    row.CreatedAt.UTC(),
	}, nil
}

func (s *SQLiteStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *SQLiteStore) CreateTask(ctx context.Context, ownerID string, fields models.TaskFields) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := newTask(ownerID, fields, s.now())
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owners int64
		if err := tx.Model(&sqliteUser{}).Where("id = ?", ownerID).Count(&owners).Error; err != nil {
			return apperror.Storage("check owner", err)
		}
		if owners == 0 {
			return errUnknownOwner
		}
		row := sqliteTaskFrom(task)
		if err := tx.Create(&row).Error; err != nil {
			return apperror.Storage("create task", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var row sqliteTask
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errTaskNotFound
	}
	if err != nil {
		return nil, apperror.Storage("get task", err)
	}
	task := row.toModel()
	return &task, nil
}

func (s *SQLiteStore) ListTasksByOwner(ctx context.Context, ownerID string) ([]models.Task, error) {
	var rows []sqliteTask
	if err := s.db.WithContext(ctx).Where("user_id = ?", ownerID).Find(&rows).Error; err != nil {
		return nil, apperror.Storage("list tasks", err)
	}
	tasks := make([]models.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toModel())
	}
	return tasks, nil
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sqliteTask
		err := tx.First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errTaskNotFound
		}
		if err != nil {
			return apperror.Storage("get task", err)
		}
		task := row.toModel()
		patch.Apply(&task, s.now())
		next := sqliteTaskFrom(task)
		if err := tx.Save(&next).Error; err != nil {
			return apperror.Storage("update task", err)
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).Delete(&sqliteTask{}, "id = ?", id)
	if result.Error != nil {
		return apperror.Storage("delete task", result.Error)
	}
	if result.RowsAffected == 0 {
		return errTaskNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
