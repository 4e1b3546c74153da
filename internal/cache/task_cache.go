// Package cache puts a Redis read-through layer in front of a Store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"taskmanager/internal/models"
	"taskmanager/internal/repository"
	"taskmanager/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// TaskCache caches single-task reads. Lists always go to the store.
// Redis failures are logged and the store answers instead.
type TaskCache struct {
	repository.Store
	client *redis.Client
	ttl    time.Duration

	// writers hold mu exclusively across the store write and the key
	// delete, so a concurrent miss cannot put back a stale copy.
	mu sync.RWMutex
}

func NewTaskCache(store repository.Store, client *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{Store: store, client: client, ttl: ttl}
}

func taskKey(id string) string {
	return "task:" + id
}

func (c *TaskCache) GetTask(ctx context.Context, id string) (*models.Task, error) {
	key := taskKey(id)
	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		var task models.Task
		if err := json.Unmarshal([]byte(cached), &task); err == nil {
			return &task, nil
		}
		logger.ErrorLogger.Error("Discarding undecodable cache entry", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		logger.ErrorLogger.Error("Redis get failed", zap.String("key", key), zap.Error(err))
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	task, err := c.Store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(task); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.ErrorLogger.Error("Redis set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return task, nil
}

func (c *TaskCache) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	task, err := c.Store.UpdateTask(ctx, id, patch)
	c.invalidate(ctx, id)
	return task, err
}

func (c *TaskCache) DeleteTask(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.Store.DeleteTask(ctx, id)
	c.invalidate(ctx, id)
	return err
}

func (c *TaskCache) invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, taskKey(id)).Err(); err != nil {
		logger.ErrorLogger.Error("Redis delete failed", zap.String("task_id", id), zap.Error(err))
	}
}

// Close closes the store and the Redis client.
func (c *TaskCache) Close() error {
	return errors.Join(c.Store.Close(), c.client.Close())
}
