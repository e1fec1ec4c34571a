package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
)

type localStorage struct{}

// NewLocalStorage creates a StackFetcher that reads file:// URLs from the
// local filesystem. Used by the CLI and by deployments where stacks are
// mounted next to the service.
func NewLocalStorage() StackFetcher {
	return &localStorage{}
}

func (s *localStorage) FetchStack(ctx context.Context, stackURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsedURL, err := url.Parse(stackURL)
	if err != nil {
		return nil, fmt.Errorf("invalid file URL: %w", err)
	}
	if parsedURL.Path == "" {
		return nil, fmt.Errorf("file URL %s has no path", stackURL)
	}

	data, err := os.ReadFile(parsedURL.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", parsedURL.Path, err)
	}
	return data, nil
}
