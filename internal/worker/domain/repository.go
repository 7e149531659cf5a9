package domain

import "time"

// Repository is the ledger row for one processing job
type Repository struct {
	RepositoryID    string
	SourceLink      string
	CloneStatus     string
	RunStatus       string
	PrimaryLanguage string
	ResultURL       string
	ErrorMessage    string
	WorkerID        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// JobMessage is a job pointer read from the queue
type JobMessage struct {
	RepositoryID string `json:"repository_id"`
	DeliveryTag  uint64 `json:"-"`
}
