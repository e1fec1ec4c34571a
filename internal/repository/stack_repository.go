package repository

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go-cell-segmenter/internal/factory"
	"go-cell-segmenter/internal/imagestack"
	"go-cell-segmenter/internal/storage"
	"go-cell-segmenter/pkg/validation"
)

// fetchedStackRepository routes stack URLs to the storage backend matching
// their scheme and decodes the payloads it fetches.
type fetchedStackRepository struct {
	storageFactory factory.StorageFactory
	validator      *validation.URLValidator
	fetchTimeout   time.Duration
}

// NewStackRepository creates a repository over the given storage factory.
// fetchTimeout bounds each fetch; zero leaves the caller's deadline in
// charge.
func NewStackRepository(storageFactory factory.StorageFactory, fetchTimeout time.Duration) StackRepository {
	return &fetchedStackRepository{
		storageFactory: storageFactory,
		validator:      validation.NewURLValidator(),
		fetchTimeout:   fetchTimeout,
	}
}

// FetchStack retrieves and decodes a .npy stack
func (r *fetchedStackRepository) FetchStack(ctx context.Context, stackURL string) (*imagestack.ImageStack, error) {
	data, err := r.FetchRaw(ctx, stackURL)
	if err != nil {
		return nil, err
	}

	stack, err := imagestack.ReadNPY(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("stack at %s is not a readable npy array: %w", stackURL, err)
	}
	return stack, nil
}

// FetchRaw retrieves the stack bytes without decoding them
func (r *fetchedStackRepository) FetchRaw(ctx context.Context, stackURL string) ([]byte, error) {
	if err := r.ValidateStackURL(stackURL); err != nil {
		return nil, err
	}

	if r.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
	}

	fetcher, err := r.fetcherFor(stackURL)
	if err != nil {
		return nil, err
	}

	data, err := fetcher.FetchStack(ctx, stackURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStackNotFound, err)
	}
	return data, nil
}

// ValidateStackURL validates if the provided URL is acceptable
func (r *fetchedStackRepository) ValidateStackURL(stackURL string) error {
	if err := r.validator.ValidateStackURL(stackURL); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStackURL, err)
	}
	return nil
}

// GetStackMetadata describes a stack by fetching and decoding it. The decode
// is the only reliable source of shape information for npy payloads.
func (r *fetchedStackRepository) GetStackMetadata(ctx context.Context, stackURL string) (*StackMetadata, error) {
	data, err := r.FetchRaw(ctx, stackURL)
	if err != nil {
		return nil, err
	}

	meta := &StackMetadata{
		ContentLength: int64(len(data)),
		Format:        formatFor(stackURL),
	}

	if meta.Format == "npy" {
		stack, err := imagestack.ReadNPY(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("stack at %s is not a readable npy array: %w", stackURL, err)
		}
		meta.Shape = stack.Shape()
	}
	return meta, nil
}

func (r *fetchedStackRepository) fetcherFor(stackURL string) (storage.StackFetcher, error) {
	parsed, err := url.Parse(stackURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStackURL, err)
	}

	storageType, err := factory.StorageTypeForScheme(parsed.Scheme)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, parsed.Scheme)
	}
	return r.storageFactory.CreateStorage(storageType)
}

func formatFor(stackURL string) string {
	lower := strings.ToLower(stackURL)
	switch {
	case strings.Contains(lower, ".npy"):
		return "npy"
	case strings.Contains(lower, ".h5"), strings.Contains(lower, ".hdf5"):
		return "hdf5"
	default:
		return "unknown"
	}
}
