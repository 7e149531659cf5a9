package model

import (
	"database/sql"
	"time"
)

type Repository struct {
	RepositoryID    string         `db:"repository_id"`
	SourceLink      string         `db:"source_link"`
	CloneStatus     string         `db:"clone_status"`
	RunStatus       string         `db:"run_status"`
	PrimaryLanguage sql.NullString `db:"primary_language"`
	ResultURL       sql.NullString `db:"result_url"`
	ErrorMessage    sql.NullString `db:"error_message"`
	WorkerID        sql.NullString `db:"worker_id"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}
