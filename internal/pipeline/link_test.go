package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLink(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Link
		wantErr bool
	}{
		{
			name: "repository link",
			raw:  "https://github.com/octocat/hello-world",
			want: Link{Owner: "octocat", Name: "hello-world"},
		},
		{
			name: "repository link with .git suffix",
			raw:  "https://github.com/octocat/hello-world.git",
			want: Link{Owner: "octocat", Name: "hello-world"},
		},
		{
			name: "repository link with trailing slash",
			raw:  "https://github.com/octocat/hello-world/",
			want: Link{Owner: "octocat", Name: "hello-world"},
		},
		{
			name: "repository link with www and http",
			raw:  "http://www.github.com/octocat/hello-world",
			want: Link{Owner: "octocat", Name: "hello-world"},
		},
		{
			name: "account link",
			raw:  "https://github.com/octocat",
			want: Link{Owner: "octocat", IsAccount: true},
		},
		{
			name: "surrounding whitespace",
			raw:  "  https://github.com/octocat/hello-world  ",
			want: Link{Owner: "octocat", Name: "hello-world"},
		},
		{
			name:    "empty string",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			raw:     "   ",
			wantErr: true,
		},
		{
			name:    "not a github link",
			raw:     "https://gitlab.com/octocat/hello-world",
			wantErr: true,
		},
		{
			name:    "missing scheme",
			raw:     "github.com/octocat/hello-world",
			wantErr: true,
		},
		{
			name:    "extra path segments",
			raw:     "https://github.com/octocat/hello-world/tree/main",
			wantErr: true,
		},
		{
			name:    "plain garbage",
			raw:     "not a link at all",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLink(tt.raw)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidLink)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
