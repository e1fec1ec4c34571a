package factory

import (
	"fmt"

	"go-cell-segmenter/internal/analyzer"
	"go-cell-segmenter/internal/storage"
)

// LabelerType represents different probability labeling configurations
type LabelerType string

const (
	// OtsuLabeler thresholds with Otsu's method and labels with 4-connectivity
	OtsuLabeler LabelerType = "otsu"
	// OtsuDiagonalLabeler is OtsuLabeler with 8-connectivity, so diagonally
	// touching cells merge into one component
	OtsuDiagonalLabeler LabelerType = "otsu-diagonal"
	// MidpointLabeler uses a fixed 0.5 probability cutoff
	MidpointLabeler LabelerType = "midpoint"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based stack fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// LabelingOptionsFor maps a labeler type onto its labeling options. The empty
// type selects the default configuration.
func LabelingOptionsFor(labelerType LabelerType) (analyzer.LabelingOptions, error) {
	switch labelerType {
	case "", OtsuLabeler:
		return analyzer.DefaultOptions(), nil
	case OtsuDiagonalLabeler:
		return analyzer.DefaultOptions().WithConnectivity(8), nil
	case MidpointLabeler:
		return analyzer.DefaultOptions().WithFixedThreshold(0.5), nil
	default:
		return analyzer.LabelingOptions{}, fmt.Errorf("unsupported labeler type: %s", labelerType)
	}
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.StackFetcher, error)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	azureAccountName string
	azureAccountKey  string
}

// NewStorageFactory creates a new storage factory. The Azure credentials may
// be empty, in which case AzureStorage cannot be created.
func NewStorageFactory(azureAccountName, azureAccountKey string) StorageFactory {
	return &storageFactory{
		azureAccountName: azureAccountName,
		azureAccountKey:  azureAccountKey,
	}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.StackFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPStackFetcher(), nil
	case AzureStorage:
		if f.azureAccountName == "" || f.azureAccountKey == "" {
			return nil, fmt.Errorf("azure storage requires AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY")
		}
		return storage.NewAzureStorage(f.azureAccountName, f.azureAccountKey)
	case LocalStorage:
		return storage.NewLocalStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// StorageTypeForScheme maps a stack URL scheme onto the backend that serves it
func StorageTypeForScheme(scheme string) (StorageType, error) {
	switch scheme {
	case "http", "https":
		return HTTPStorage, nil
	case "azure":
		return AzureStorage, nil
	case "file":
		return LocalStorage, nil
	default:
		return "", fmt.Errorf("unsupported URL scheme: %s", scheme)
	}
}
