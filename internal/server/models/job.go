package models

import "time"

// JobState is the lifecycle position of a thumbnail job.
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobDone       JobState = "done"
	JobFailed     JobState = "failed"
)

// Terminal reports whether no further transition is possible.
func (s JobState) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// ThumbnailJob asks a worker to produce resized variants of an image.
type ThumbnailJob struct {
	ID         string    `json:"id"`
	FileID     int64     `json:"fileId"`
	UserID     int64     `json:"userId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// JobStatus is the recorded state of a job.
type JobStatus struct {
	State     JobState
	Reason    string
	UpdatedAt time.Time
}
