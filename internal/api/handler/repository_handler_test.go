package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/api/domain"
	"github.com/repolens/repolens/internal/api/model"
	"github.com/repolens/repolens/internal/api/storage"
	"github.com/repolens/repolens/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	repos       map[string]*model.Repository
	createCalls int
	createErr   error
	markFailed  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{repos: make(map[string]*model.Repository)}
}

func (s *fakeStore) CreateRepository(_ context.Context, repo *model.Repository) error {
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	s.repos[repo.RepositoryID] = repo
	return nil
}

func (s *fakeStore) GetRepositoryByID(_ context.Context, repositoryID string) (*model.Repository, error) {
	repo, ok := s.repos[repositoryID]
	if !ok {
		return nil, domain.ErrRepositoryNotFound
	}
	return repo, nil
}

func (s *fakeStore) ListRepositories(_ context.Context, _ storage.RepositoryFilter) ([]model.Repository, error) {
	out := make([]model.Repository, 0, len(s.repos))
	for _, repo := range s.repos {
		out = append(out, *repo)
	}
	return out, nil
}

func (s *fakeStore) MarkFailed(_ context.Context, repositoryID, _ string) error {
	s.markFailed = append(s.markFailed, repositoryID)
	if repo, ok := s.repos[repositoryID]; ok {
		repo.CloneStatus = domain.StatusFailed
		repo.RunStatus = domain.StatusFailed
	}
	return nil
}

type fakeValidator struct {
	valid bool
	err   error
	calls int
}

func (v *fakeValidator) Validate(_ context.Context, _ string) (bool, error) {
	v.calls++
	return v.valid, v.err
}

type fakePublisher struct {
	err       error
	published [][]byte
}

func (p *fakePublisher) PublishJob(_ context.Context, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, body)
	return nil
}

func newTestRouter(h *RepositoryHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/v1/repositories", h.ProcessRepository)
	router.GET("/api/v1/repositories", h.ListRepositories)
	router.GET("/api/v1/repositories/:repository_id/status", h.GetStatus)
	return router
}

func TestRepositoryHandler_ProcessRepository(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		validator      *fakeValidator
		publisher      *fakePublisher
		expectedStatus int
		checkFunc      func(t *testing.T, store *fakeStore, validator *fakeValidator, publisher *fakePublisher, rec *httptest.ResponseRecorder)
	}{
		{
			name:           "malformed link is rejected without touching storage",
			body:           `{"link": "https://gitlab.com/owner/name"}`,
			validator:      &fakeValidator{err: fmt.Errorf("%w: host must be github.com", pipeline.ErrInvalidLink)},
			publisher:      &fakePublisher{},
			expectedStatus: http.StatusBadRequest,
			checkFunc: func(t *testing.T, store *fakeStore, _ *fakeValidator, publisher *fakePublisher, _ *httptest.ResponseRecorder) {
				assert.Equal(t, 0, store.createCalls)
				assert.Empty(t, publisher.published)
			},
		},
		{
			name:           "nonexistent repository leaves no record behind",
			body:           `{"link": "https://github.com/octocat/no-such-repo"}`,
			validator:      &fakeValidator{valid: false},
			publisher:      &fakePublisher{},
			expectedStatus: http.StatusUnprocessableEntity,
			checkFunc: func(t *testing.T, store *fakeStore, validator *fakeValidator, publisher *fakePublisher, _ *httptest.ResponseRecorder) {
				assert.Equal(t, 1, validator.calls)
				assert.Equal(t, 0, store.createCalls)
				assert.Empty(t, publisher.published)
			},
		},
		{
			name:           "missing link never reaches the validator",
			body:           `{}`,
			validator:      &fakeValidator{valid: true},
			publisher:      &fakePublisher{},
			expectedStatus: http.StatusBadRequest,
			checkFunc: func(t *testing.T, store *fakeStore, validator *fakeValidator, _ *fakePublisher, _ *httptest.ResponseRecorder) {
				assert.Equal(t, 0, validator.calls)
				assert.Equal(t, 0, store.createCalls)
			},
		},
		{
			name:           "validator transport error is a server error",
			body:           `{"link": "https://github.com/octocat/hello-world"}`,
			validator:      &fakeValidator{err: errors.New("github api unreachable")},
			publisher:      &fakePublisher{},
			expectedStatus: http.StatusInternalServerError,
			checkFunc: func(t *testing.T, store *fakeStore, _ *fakeValidator, _ *fakePublisher, _ *httptest.ResponseRecorder) {
				assert.Equal(t, 0, store.createCalls)
			},
		},
		{
			name:           "valid link is recorded and enqueued",
			body:           `{"link": "https://github.com/octocat/hello-world"}`,
			validator:      &fakeValidator{valid: true},
			publisher:      &fakePublisher{},
			expectedStatus: http.StatusAccepted,
			checkFunc: func(t *testing.T, store *fakeStore, _ *fakeValidator, publisher *fakePublisher, rec *httptest.ResponseRecorder) {
				var resp map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, "ACCEPTED", resp["status"])
				assert.NotEmpty(t, resp["repository_id"])

				require.Equal(t, 1, store.createCalls)
				repo, ok := store.repos[resp["repository_id"]]
				require.True(t, ok)
				assert.Equal(t, domain.StatusPending, repo.CloneStatus)
				assert.Equal(t, domain.StatusPending, repo.RunStatus)

				require.Len(t, publisher.published, 1)
				var msg map[string]string
				require.NoError(t, json.Unmarshal(publisher.published[0], &msg))
				assert.Equal(t, resp["repository_id"], msg["repository_id"])
			},
		},
		{
			name:           "publish failure marks the record failed",
			body:           `{"link": "https://github.com/octocat/hello-world"}`,
			validator:      &fakeValidator{valid: true},
			publisher:      &fakePublisher{err: errors.New("broker unavailable")},
			expectedStatus: http.StatusInternalServerError,
			checkFunc: func(t *testing.T, store *fakeStore, _ *fakeValidator, _ *fakePublisher, _ *httptest.ResponseRecorder) {
				require.Equal(t, 1, store.createCalls)
				require.Len(t, store.markFailed, 1)
				repo := store.repos[store.markFailed[0]]
				require.NotNil(t, repo)
				assert.Equal(t, domain.StatusFailed, repo.CloneStatus)
				assert.Equal(t, domain.StatusFailed, repo.RunStatus)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			h := &RepositoryHandler{
				logger:    testLogger(),
				store:     store,
				publisher: tt.publisher,
				validator: tt.validator,
			}
			router := newTestRouter(h)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/repositories", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.checkFunc != nil {
				tt.checkFunc(t, store, tt.validator, tt.publisher, rec)
			}
		})
	}
}

func TestRepositoryHandler_GetStatus(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	store.repos["6f1b0c3a-9a1e-4d2b-8f7c-2d5e9a0b1c3d"] = &model.Repository{
		RepositoryID: "6f1b0c3a-9a1e-4d2b-8f7c-2d5e9a0b1c3d",
		SourceLink:   "https://github.com/octocat/hello-world",
		CloneStatus:  domain.StatusSuccess,
		RunStatus:    domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	h := &RepositoryHandler{
		logger:    testLogger(),
		store:     store,
		publisher: &fakePublisher{},
		validator: &fakeValidator{},
	}
	router := newTestRouter(h)

	tests := []struct {
		name           string
		repositoryID   string
		expectedStatus int
		checkFunc      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:           "invalid uuid",
			repositoryID:   "not-a-uuid",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown repository",
			repositoryID:   "00000000-0000-0000-0000-000000000000",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "known repository",
			repositoryID:   "6f1b0c3a-9a1e-4d2b-8f7c-2d5e9a0b1c3d",
			expectedStatus: http.StatusOK,
			checkFunc: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, "SUCCESS", resp["clone_status"])
				assert.Equal(t, "PENDING", resp["run_status"])
				assert.Equal(t, "https://github.com/octocat/hello-world", resp["source_link"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/repositories/"+tt.repositoryID+"/status", nil)
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.checkFunc != nil {
				tt.checkFunc(t, rec)
			}
		})
	}
}

func TestRepositoryHandler_ListRepositories_FilterValidation(t *testing.T) {
	h := &RepositoryHandler{
		logger:    testLogger(),
		store:     newFakeStore(),
		publisher: &fakePublisher{},
		validator: &fakeValidator{},
	}
	router := newTestRouter(h)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
	}{
		{
			name:           "no filters",
			query:          "",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "valid clone_status filter",
			query:          "?clone_status=FAILED",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unsupported run_status filter is allowed",
			query:          "?run_status=UNSUPPORTED",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown clone_status filter",
			query:          "?clone_status=RUNNING",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unsupported is not a clone status",
			query:          "?clone_status=UNSUPPORTED",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown run_status filter",
			query:          "?run_status=done",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/repositories"+tt.query, nil)
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}
