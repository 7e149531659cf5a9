package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProber struct {
	repoExists bool
	userExists bool
	err        error

	repoCalls int
	userCalls int
}

func (f *fakeProber) RepositoryExists(ctx context.Context, owner, repo string) (bool, error) {
	f.repoCalls++
	return f.repoExists, f.err
}

func (f *fakeProber) UserExists(ctx context.Context, owner string) (bool, error) {
	f.userCalls++
	return f.userExists, f.err
}

func TestLinkValidator_Validate(t *testing.T) {
	tests := []struct {
		name      string
		link      string
		prober    *fakeProber
		want      bool
		wantErr   error
		checkFunc func(t *testing.T, prober *fakeProber)
	}{
		{
			name:   "existing repository",
			link:   "https://github.com/octocat/hello-world",
			prober: &fakeProber{repoExists: true},
			want:   true,
			checkFunc: func(t *testing.T, prober *fakeProber) {
				assert.Equal(t, 1, prober.repoCalls)
				assert.Equal(t, 0, prober.userCalls)
			},
		},
		{
			name:   "existing account",
			link:   "https://github.com/octocat",
			prober: &fakeProber{userExists: true},
			want:   true,
			checkFunc: func(t *testing.T, prober *fakeProber) {
				assert.Equal(t, 0, prober.repoCalls)
				assert.Equal(t, 1, prober.userCalls)
			},
		},
		{
			name:   "repository does not exist",
			link:   "https://github.com/octocat/gone",
			prober: &fakeProber{repoExists: false},
			want:   false,
		},
		{
			name:   "probe transport error is not valid, not surfaced",
			link:   "https://github.com/octocat/hello-world",
			prober: &fakeProber{err: errors.New("connection refused")},
			want:   false,
		},
		{
			name:    "malformed link fails fast before any network call",
			link:    "not a link",
			prober:  &fakeProber{repoExists: true},
			wantErr: ErrInvalidLink,
			checkFunc: func(t *testing.T, prober *fakeProber) {
				assert.Equal(t, 0, prober.repoCalls)
				assert.Equal(t, 0, prober.userCalls)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewLinkValidator(tt.prober, testLogger())

			got, err := validator.Validate(context.Background(), tt.link)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			if tt.checkFunc != nil {
				tt.checkFunc(t, tt.prober)
			}
		})
	}
}
