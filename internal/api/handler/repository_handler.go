package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/repolens/repolens/internal/api/domain"
	"github.com/repolens/repolens/internal/api/dto"
	"github.com/repolens/repolens/internal/api/model"
	"github.com/repolens/repolens/internal/api/storage"
	"github.com/repolens/repolens/internal/pipeline"
)

// ProcessRepository handles POST /api/v1/repositories
// Validates the link synchronously, records the job and hands it to the
// worker queue. Never blocks on cloning or execution.
func (h *RepositoryHandler) ProcessRepository(c *gin.Context) {
	var req dto.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	valid, err := h.validator.Validate(c.Request.Context(), req.Link)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidLink) {
			h.logger.Info("Rejected malformed link",
				slog.String("link", req.Link),
			)
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "link must look like https://github.com/owner/name",
			})
			return
		}
		h.logger.Error("Link validation failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to validate link",
		})
		return
	}

	// Probe failures produce no ledger row: the caller learns
	// synchronously that the link points nowhere
	if !valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "repository or account does not exist",
		})
		return
	}

	now := time.Now().UTC()
	repo := model.Repository{
		RepositoryID: uuid.New().String(),
		SourceLink:   req.Link,
		CloneStatus:  domain.StatusPending,
		RunStatus:    domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	body, err := json.Marshal(map[string]string{
		"repository_id": repo.RepositoryID,
	})
	if err != nil {
		h.logger.Error("Failed to marshal job message", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue repository",
		})
		return
	}

	if err := h.store.CreateRepository(c.Request.Context(), &repo); err != nil {
		h.logger.Error("Failed to create repository record", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create repository record",
		})
		return
	}

	if err := h.publisher.PublishJob(c.Request.Context(), body); err != nil {
		h.logger.Error("Failed to publish job message",
			slog.String("repository_id", repo.RepositoryID),
			slog.String("error", err.Error()),
		)

		// The row exists but no worker will ever see it; record the
		// terminal failure instead of leaving it PENDING forever
		if markErr := h.store.MarkFailed(c.Request.Context(), repo.RepositoryID, "failed to enqueue processing job"); markErr != nil {
			h.logger.Error("Failed to mark orphaned repository as failed",
				slog.String("repository_id", repo.RepositoryID),
				slog.String("error", markErr.Error()),
			)
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue repository",
		})
		return
	}

	h.logger.Info("Repository accepted for processing",
		slog.String("repository_id", repo.RepositoryID),
		slog.String("link", repo.SourceLink),
	)

	c.JSON(http.StatusAccepted, dto.ProcessResponse{
		RepositoryID: repo.RepositoryID,
		Status:       "ACCEPTED",
	})
}

// GetStatus handles GET /api/v1/repositories/:repository_id/status
func (h *RepositoryHandler) GetStatus(c *gin.Context) {
	repositoryID := c.Param("repository_id")

	if _, err := uuid.Parse(repositoryID); err != nil {
		h.logger.Error("Invalid repository_id format",
			slog.String("repository_id", repositoryID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "repository_id must be a valid UUID",
		})
		return
	}

	repo, err := h.store.GetRepositoryByID(c.Request.Context(), repositoryID)
	if err != nil {
		if errors.Is(err, domain.ErrRepositoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "repository not found",
			})
			return
		}
		h.logger.Error("Failed to get repository", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get repository",
		})
		return
	}

	c.JSON(http.StatusOK, toStatusResponse(repo))
}

// ListRepositories handles GET /api/v1/repositories
// Lists repositories with optional status filtering and cursor pagination
func (h *RepositoryHandler) ListRepositories(c *gin.Context) {
	var req dto.ListRepositoriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if !validCloneStatusFilter(req.CloneStatus) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "clone_status must be one of PENDING, SUCCESS, FAILED",
		})
		return
	}

	if !validRunStatusFilter(req.RunStatus) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "run_status must be one of PENDING, SUCCESS, FAILED, UNSUPPORTED",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeRepositoryCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.RepositoryFilter{
		CloneStatus: req.CloneStatus,
		RunStatus:   req.RunStatus,
		PageSize:    req.PageSize,
		Cursor:      cursor,
	}

	repos, err := h.store.ListRepositories(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list repositories", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list repositories",
		})
		return
	}

	hasMore := len(repos) > req.PageSize
	if hasMore {
		repos = repos[:req.PageSize]
	}

	response := make([]dto.StatusResponse, len(repos))
	for i := range repos {
		response[i] = toStatusResponse(&repos[i])
	}

	var nextCursor string
	if hasMore {
		last := repos[len(repos)-1]
		cursorObj := storage.RepositoryCursor{
			CreatedAt:    last.CreatedAt,
			RepositoryID: last.RepositoryID,
		}
		nextCursor, err = EncodeRepositoryCursor(&cursorObj)
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListRepositoriesResponse{
		Repositories: response,
		NextCursor:   nextCursor,
	})
}

// validCloneStatusFilter accepts an empty filter or one of the clone stage
// statuses
func validCloneStatusFilter(status string) bool {
	switch status {
	case "", domain.StatusPending, domain.StatusSuccess, domain.StatusFailed:
		return true
	}
	return false
}

// validRunStatusFilter additionally allows the UNSUPPORTED terminal state
func validRunStatusFilter(status string) bool {
	return validCloneStatusFilter(status) || status == domain.RunStatusUnsupported
}

func toStatusResponse(repo *model.Repository) dto.StatusResponse {
	resp := dto.StatusResponse{
		RepositoryID: repo.RepositoryID,
		SourceLink:   repo.SourceLink,
		CloneStatus:  repo.CloneStatus,
		RunStatus:    repo.RunStatus,
		Timestamp:    repo.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if repo.PrimaryLanguage.Valid {
		resp.PrimaryLanguage = &repo.PrimaryLanguage.String
	}
	if repo.ResultURL.Valid {
		resp.ResultURL = &repo.ResultURL.String
	}
	if repo.ErrorMessage.Valid {
		resp.ErrorMessage = &repo.ErrorMessage.String
	}

	return resp
}
