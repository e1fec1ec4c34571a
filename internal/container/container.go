package container

import (
	"net/http"

	"go-cell-segmenter/internal/config"
	"go-cell-segmenter/internal/factory"
	"go-cell-segmenter/internal/ilastik"
	"go-cell-segmenter/internal/logger"
	"go-cell-segmenter/internal/observer"
	"go-cell-segmenter/internal/repository"
	"go-cell-segmenter/internal/service"
	"go-cell-segmenter/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config              *config.Config
	storageFactory      factory.StorageFactory
	stackRepository     repository.StackRepository
	classifier          *ilastik.Classifier
	publisher           observer.Subject
	metrics             *observer.MetricsObserver
	segmentationService service.SegmentationService
	handler             http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	storageFactory := factory.NewStorageFactory(cfg.AzureAccountName, cfg.AzureAccountKey)
	if !cfg.AzureConfigured() {
		logger.WithComponent("container").Info("Azure credentials not set; azure:// stack URLs will be rejected")
	}

	stackRepository := repository.NewStackRepository(storageFactory, cfg.StackFetchTimeout)

	classifier, err := ilastik.NewClassifier(cfg.IlastikExecutable, cfg.IlastikProject)
	if err != nil {
		return nil, err
	}

	metrics := observer.NewMetricsObserver().(*observer.MetricsObserver)
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	segmentationService := service.NewSegmentationService(stackRepository, classifier, publisher, cfg.MaxWorkers)
	handler := transport.NewHandler(segmentationService, metrics, cfg)

	return &Container{
		config:              cfg,
		storageFactory:      storageFactory,
		stackRepository:     stackRepository,
		classifier:          classifier,
		publisher:           publisher,
		metrics:             metrics,
		segmentationService: segmentationService,
		handler:             handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the segmentation service
func (c *Container) Service() service.SegmentationService {
	return c.segmentationService
}
