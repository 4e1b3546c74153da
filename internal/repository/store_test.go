package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"taskmanager/internal/apperror"
	"taskmanager/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreSuite exercises the Store contract. open must return an empty store.
func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()
	deadline := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("create applies defaults", func(t *testing.T) {
		s := open(t)
		owner := seedUser(t, s, "alice")

		task, err := s.CreateTask(ctx, owner.ID, models.TaskFields{Title: "Ship report", Deadline: deadline})
		require.NoError(t, err)

		assert.NotEmpty(t, task.ID)
		assert.Equal(t, owner.ID, task.OwnerID)
		assert.Equal(t, models.StatusPending, task.Status)
		assert.Equal(t, models.PriorityMedium, task.Priority)
		assert.False(t, task.CreatedAt.IsZero())
		assert.True(t, task.UpdatedAt.Equal(task.CreatedAt))
	})

	t.Run("create requires title and deadline", func(t *testing.T) {
		s := open(t)
		owner := seedUser(t, s, "alice")

		_, err := s.CreateTask(ctx, owner.ID, models.TaskFields{Deadline: deadline})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

		_, err = s.CreateTask(ctx, owner.ID, models.TaskFields{Title: "No deadline"})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("create rejects unknown owner", func(t *testing.T) {
		s := open(t)

		_, err := s.CreateTask(ctx, "missing-user", models.TaskFields{Title: "Orphan", Deadline: deadline})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("create then get round-trips", func(t *testing.T) {
		s := open(t)
		owner := seedUser(t, s, "alice")

		created, err := s.CreateTask(ctx, owner.ID, models.TaskFields{
			Title:       "Ship report",
			Description: "Annual report due",
			Deadline:    deadline,
			Priority:    models.PriorityHigh,
		})
		require.NoError(t, err)

		got, err := s.GetTask(ctx, created.ID)
		require.NoError(t, err)
		assertSameTask(t, *created, *got)
		assert.Equal(t, models.PriorityHigh, got.Priority)
		assert.True(t, got.Deadline.Equal(deadline))
	})

	t.Run("get missing is not found", func(t *testing.T) {
		s := open(t)

		_, err := s.GetTask(ctx, "nope")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("list is scoped to owner", func(t *testing.T) {
		s := open(t)
		a := seedUser(t, s, "alice")
		b := seedUser(t, s, "bob")

		for i := 0; i < 3; i++ {
			_, err := s.CreateTask(ctx, a.ID, models.TaskFields{Title: fmt.Sprintf("a-%d", i), Deadline: deadline})
			require.NoError(t, err)
		}
		_, err := s.CreateTask(ctx, b.ID, models.TaskFields{Title: "b-0", Deadline: deadline})
		require.NoError(t, err)

		tasks, err := s.ListTasksByOwner(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, tasks, 3)
		for _, task := range tasks {
			assert.Equal(t, a.ID, task.OwnerID)
		}

		empty, err := s.ListTasksByOwner(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("update merges supplied fields only", func(t *testing.T) {
		s := open(t)
		owner := seedUser(t, s, "alice")
		created, err := s.CreateTask(ctx, owner.ID, models.TaskFields{
			Title:       "Ship report",
			Description: "Annual report due",
			Deadline:    deadline,
			Priority:    models.PriorityHigh,
		})
		require.NoError(t, err)

		completed := models.StatusCompleted
		updated, err := s.UpdateTask(ctx, created.ID, models.TaskPatch{Status: &completed})
		require.NoError(t, err)

		assert.Equal(t, models.StatusCompleted, updated.Status)
		assert.Equal(t, created.Title, updated.Title)
		assert.Equal(t, created.Description, updated.Description)
		assert.Equal(t, created.Priority, updated.Priority)
		assert.True(t, created.Deadline.Equal(updated.Deadline))
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

		got, err := s.GetTask(ctx, created.ID)
		require.NoError(t, err)
		assertSameTask(t, *updated, *got)
	})

	t.Run("update missing is not found", func(t *testing.T) {
		s := open(t)
		title := "x"

		_, err := s.UpdateTask(ctx, "nope", models.TaskPatch{Title: &title})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		s := open(t)
		owner := seedUser(t, s, "alice")
		created, err := s.CreateTask(ctx, owner.ID, models.TaskFields{Title: "Temp", Deadline: deadline})
		require.NoError(t, err)

		require.NoError(t, s.DeleteTask(ctx, created.ID))

		_, err = s.GetTask(ctx, created.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		assert.ErrorIs(t, s.DeleteTask(ctx, created.ID), apperror.ErrNotFound)
	})

	t.Run("users are unique by username and email", func(t *testing.T) {
		s := open(t)
		alice := seedUser(t, s, "alice")

		err := s.CreateUser(ctx, &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "h"})
		assert.ErrorIs(t, err, apperror.ErrConflict)

		err = s.CreateUser(ctx, &models.User{Username: "other", Email: alice.Email, PasswordHash: "h"})
		assert.ErrorIs(t, err, apperror.ErrConflict)

		byEmail, err := s.FindUserByEmail(ctx, alice.Email)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, byEmail.ID)
		assert.Equal(t, "hash-alice", byEmail.PasswordHash)

		byID, err := s.FindUserByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Username)

		_, err = s.FindUserByEmail(ctx, "ALICE@example.com")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("concurrent creates are all kept", func(t *testing.T) {
		s := open(t)
		owner := seedUser(t, s, "alice")
		const n = 40

		var wg sync.WaitGroup
		ids := make([]string, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				task, err := s.CreateTask(ctx, owner.ID, models.TaskFields{Title: fmt.Sprintf("task-%d", i), Deadline: deadline})
				errs[i] = err
				if err == nil {
					ids[i] = task.ID
				}
			}(i)
		}
		wg.Wait()

		seen := map[string]bool{}
		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			seen[ids[i]] = true
		}
		assert.Len(t, seen, n)

		tasks, err := s.ListTasksByOwner(ctx, owner.ID)
		require.NoError(t, err)
		assert.Len(t, tasks, n)
	})

	t.Run("concurrent updates do not lose each other", func(t *testing.T) {
		s := open(t)
		owner := seedUser(t, s, "alice")
		const n = 20

		ids := make([]string, n)
		for i := 0; i < n; i++ {
			task, err := s.CreateTask(ctx, owner.ID, models.TaskFields{Title: fmt.Sprintf("task-%d", i), Deadline: deadline})
			require.NoError(t, err)
			ids[i] = task.ID
		}

		completed := models.StatusCompleted
		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := s.UpdateTask(ctx, id, models.TaskPatch{Status: &completed})
				assert.NoError(t, err)
			}(id)
		}
		wg.Wait()

		tasks, err := s.ListTasksByOwner(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, tasks, n)
		for _, task := range tasks {
			assert.Equal(t, models.StatusCompleted, task.Status, "task %s", task.ID)
		}
	})
}

func seedUser(t *testing.T, s UserStore, name string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash-" + name,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}

func assertSameTask(t *testing.T, want, got models.Task) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.OwnerID, got.OwnerID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Priority, got.Priority)
	assert.Equal(t, want.Status, got.Status)
	assert.True(t, want.Deadline.Equal(got.Deadline), "deadline %v != %v", want.Deadline, got.Deadline)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt %v != %v", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updatedAt %v != %v", want.UpdatedAt, got.UpdatedAt)
}
