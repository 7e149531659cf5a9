package dto

type ProcessRequest struct {
	Link string `json:"link" binding:"required"`
}

type ProcessResponse struct {
	RepositoryID string `json:"repository_id"`
	Status       string `json:"status"`
}

type StatusResponse struct {
	RepositoryID    string  `json:"repository_id"`
	SourceLink      string  `json:"source_link"`
	CloneStatus     string  `json:"clone_status"`
	RunStatus       string  `json:"run_status"`
	PrimaryLanguage *string `json:"primary_language"`
	ResultURL       *string `json:"result_url"`
	ErrorMessage    *string `json:"error_message,omitempty"`
	Timestamp       string  `json:"timestamp"`
}

type ListRepositoriesRequest struct {
	CloneStatus string `form:"clone_status"`
	RunStatus   string `form:"run_status"`
	PageSize    int    `form:"page_size"`
	Cursor      string `form:"cursor"`
}

type ListRepositoriesResponse struct {
	Repositories []StatusResponse `json:"repositories"`
	NextCursor   string           `json:"next_cursor,omitempty"`
}
