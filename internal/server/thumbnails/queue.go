package thumbnails

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix = "thumbnail_job:"
	jobStateTTL  = 7 * 24 * time.Hour
)

var now = time.Now

// Delivery is a job taken from the queue. It stays in the worker's
// processing list until acknowledged.
type Delivery struct {
	Job models.ThumbnailJob
	raw string
}

// RedisQueue is a reliable list-based queue. Producers RPUSH to the queue;
// a consumer atomically moves the head into its own processing list with
// BLMOVE and removes it from there once handled. Jobs left in a processing
// list by a crashed worker are pushed back by Recover.
type RedisQueue struct {
	client      redis.Cmdable
	name        string
	processing  string
	pollTimeout time.Duration
}

// NewRedisQueue returns a queue on list name. workerID selects the
// processing list and is only relevant to consumers.
func NewRedisQueue(client redis.Cmdable, name, workerID string, pollTimeout time.Duration) *RedisQueue {
	return &RedisQueue{
		client:      client,
		name:        name,
		processing:  name + ":processing:" + workerID,
		pollTimeout: pollTimeout,
	}
}

func jobKey(id string) string { return jobKeyPrefix + id }

// Enqueue appends a job for the image and records it as queued.
func (q *RedisQueue) Enqueue(ctx context.Context, fileID, userID int64) error {
	job := models.ThumbnailJob{
		ID:         uuid.NewString(),
		FileID:     fileID,
		UserID:     userID,
		EnqueuedAt: now().UTC(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, jobKey(job.ID),
			"state", string(models.JobQueued),
			"file_id", strconv.FormatInt(fileID, 10),
			"updated_at", job.EnqueuedAt.Format(time.RFC3339Nano))
		p.Expire(ctx, jobKey(job.ID), jobStateTTL)
		p.RPush(ctx, q.name, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// Dequeue waits up to the poll timeout for a job. It returns nil, nil when
// none arrived.
func (q *RedisQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	raw, err := q.client.BLMove(ctx, q.name, q.processing, "LEFT", "RIGHT", q.pollTimeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	d := &Delivery{raw: raw}
	if err := json.Unmarshal([]byte(raw), &d.Job); err != nil {
		// undecodable payloads would be redelivered forever
		_ = q.Ack(ctx, d)
		return nil, fmt.Errorf("decode job %q: %w", raw, err)
	}
	return d, nil
}

// Ack removes a handled delivery from the processing list.
func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.client.LRem(ctx, q.processing, 1, d.raw).Err(); err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	return nil
}

// Recover moves every job left in this worker's processing list back to the
// head of the queue and returns how many were moved.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.name, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("recover: %w", err)
		}
		n++
	}
}

// SetState records a job transition.
func (q *RedisQueue) SetState(ctx context.Context, jobID string, state models.JobState, reason string) error {
	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, jobKey(jobID),
			"state", string(state),
			"reason", reason,
			"updated_at", now().UTC().Format(time.RFC3339Nano))
		p.Expire(ctx, jobKey(jobID), jobStateTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set job state: %w", err)
	}
	return nil
}

// State returns the recorded status of a job or common.ErrorNotFound.
func (q *RedisQueue) State(ctx context.Context, jobID string) (*models.JobStatus, error) {
	m, err := q.client.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job state: %w", err)
	}
	if len(m) == 0 {
		return nil, common.ErrorNotFound
	}

	st := &models.JobStatus{
		State:  models.JobState(m["state"]),
		Reason: m["reason"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, m["updated_at"]); err == nil {
		st.UpdatedAt = ts
	}
	return st, nil
}

// Len returns the number of jobs waiting in the queue.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}
