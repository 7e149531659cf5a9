package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/repolens/repolens/internal/api/storage"
)

func DecodeRepositoryCursor(cursorStr string) (*storage.RepositoryCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	_, err = fmt.Sscanf(decodedParts[0], "%d", &createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &storage.RepositoryCursor{
		CreatedAt:    time.Unix(0, createdAt),
		RepositoryID: decodedParts[1],
	}, nil
}

func EncodeRepositoryCursor(cursor *storage.RepositoryCursor) (string, error) {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.RepositoryID)
	return base64.StdEncoding.EncodeToString([]byte(cs)), nil
}
