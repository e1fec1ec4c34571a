package repository

import (
	"context"

	"go-cell-segmenter/internal/imagestack"
)

// StackRepository defines the interface for image stack data access
type StackRepository interface {
	// FetchStack retrieves a .npy stack from a URL and decodes it into the
	// five-axis container
	FetchStack(ctx context.Context, stackURL string) (*imagestack.ImageStack, error)

	// FetchRaw retrieves undecoded bytes, used for HDF5 classifier exports
	FetchRaw(ctx context.Context, stackURL string) ([]byte, error)

	// ValidateStackURL validates if the provided URL is acceptable
	ValidateStackURL(stackURL string) error

	// GetStackMetadata describes a stack. npy payloads are fetched and
	// decoded, since the shape lives in the payload header.
	GetStackMetadata(ctx context.Context, stackURL string) (*StackMetadata, error)
}

// StackMetadata contains metadata about a fetched stack
type StackMetadata struct {
	ContentLength int64
	Format        string
	Shape         [imagestack.NumAxes]int
}
