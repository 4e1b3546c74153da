package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taskmanager/internal/apperror"
	"taskmanager/internal/models"

	"github.com/lib/pq"
)

const taskColumns = "id, user_id, title, description, deadline, priority, status, created_at, updated_at"

// PostgresStore persists users and tasks in Postgres. Row-level locking in
// UpdateTask serializes concurrent read-modify-write cycles on a task.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Deadline,
		&t.Priority, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Deadline = t.Deadline.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

const (
	uniqueViolation     pq.ErrorCode = "23505"
	foreignKeyViolation pq.ErrorCode = "23503"
)

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := newUser(user, s.now()); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password, created_at) VALUES ($1, $2, $3, $4, $5)",
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return errUserExists
		}
		return apperror.Storage("create user", err)
	}
	return nil
}

func (s *PostgresStore) findUser(ctx context.Context, column, value string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password, created_at FROM users WHERE "+column+" = $1",
		value).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, apperror.Storage("find user", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (s *PostgresStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email", email)
}

func (s *PostgresStore) CreateTask(ctx context.Context, ownerID string, fields models.TaskFields) (*models.Task, error) {
	task, err := newTask(ownerID, fields, s.now())
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		task.ID, task.OwnerID, task.Title, task.Description, task.Deadline,
		task.Priority, task.Status, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return nil, errUnknownOwner
		}
		return nil, apperror.Storage("create task", err)
	}
	return &task, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errTaskNotFound
	}
	if err != nil {
		return nil, apperror.Storage("get task", err)
	}
	return task, nil
}

func (s *PostgresStore) ListTasksByOwner(ctx context.Context, ownerID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = $1", ownerID)
	if err != nil {
		return nil, apperror.Storage("list tasks", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, apperror.Storage("scan task", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterate tasks", err)
	}
	return tasks, nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperror.Storage("begin update", err)
	}
	defer tx.Rollback()

	task, err := scanTask(tx.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errTaskNotFound
	}
	if err != nil {
		return nil, apperror.Storage("lock task", err)
	}

	patch.Apply(task, s.now())
	_, err = tx.ExecContext(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, deadline = $3, priority = $4, status = $5, updated_at = $6
		WHERE id = $7`,
		task.Title, task.Description, task.Deadline, task.Priority, task.Status, task.UpdatedAt, id)
	if err != nil {
		return nil, apperror.Storage("update task", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperror.Storage("commit update", err)
	}
	return task, nil
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return apperror.Storage("delete task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.Storage("delete task", err)
	}
	if n == 0 {
		return errTaskNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
