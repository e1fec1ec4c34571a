package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"go-cell-segmenter/internal/analyzer"
	apperrors "go-cell-segmenter/internal/errors"
	"go-cell-segmenter/internal/factory"
	"go-cell-segmenter/internal/ilastik"
	"go-cell-segmenter/internal/imagestack"
	"go-cell-segmenter/internal/observer"
	"go-cell-segmenter/internal/repository"
	"go-cell-segmenter/pkg/models"
)

// StackClassifier runs the external pixel classifier over a stack. Satisfied
// by ilastik.Classifier; faked in tests.
type StackClassifier interface {
	Run(ctx context.Context, stack *imagestack.ImageStack) (*ilastik.Result, error)
	RunWithOptions(ctx context.Context, stack *imagestack.ImageStack, options analyzer.LabelingOptions) (*ilastik.Result, error)
}

// SegmentationService defines the interface for stack segmentation
type SegmentationService interface {
	// SegmentStack fetches a .npy stack, classifies it and labels the result
	SegmentStack(ctx context.Context, stackURL string, labelerType string) (*models.SegmentationResponse, error)

	// ImportProbabilities labels an already-produced classifier export
	ImportProbabilities(ctx context.Context, exportURL string, labelerType string) (*models.SegmentationResponse, error)

	// SegmentBatch segments several stacks with bounded concurrency
	SegmentBatch(ctx context.Context, stackURLs []string, labelerType string) (*models.BatchSegmentationResponse, error)

	// GetStackMetadata describes a stack without segmenting it
	GetStackMetadata(ctx context.Context, stackURL string) (*models.StackMetadata, error)

	// ValidateStackURL validates the stack URL
	ValidateStackURL(stackURL string) error
}

// segmentationService implements SegmentationService
type segmentationService struct {
	stackRepo  repository.StackRepository
	classifier StackClassifier
	publisher  observer.Subject
	maxWorkers int
}

// NewSegmentationService creates a new segmentation service
func NewSegmentationService(
	stackRepository repository.StackRepository,
	classifier StackClassifier,
	publisher observer.Subject,
	maxWorkers int,
) SegmentationService {
	return &segmentationService{
		stackRepo:  stackRepository,
		classifier: classifier,
		publisher:  publisher,
		maxWorkers: maxWorkers,
	}
}

// SegmentStack fetches, classifies and labels one stack
func (s *segmentationService) SegmentStack(ctx context.Context, stackURL string, labelerType string) (*models.SegmentationResponse, error) {
	options, err := optionsFor(labelerType)
	if err != nil {
		return nil, err
	}

	if err := s.ValidateStackURL(stackURL); err != nil {
		return nil, apperrors.NewValidationError("invalid stack URL", err)
	}

	start := time.Now()
	s.notify(ctx, observer.SegmentationEvent{
		EventType: observer.SegmentationStarted,
		Timestamp: start,
		StackURL:  stackURL,
	})

	stack, err := s.stackRepo.FetchStack(ctx, stackURL)
	if err != nil {
		s.notifyFetchFailure(ctx, stackURL, err)
		s.notifyFailure(ctx, stackURL, start, err)
		return nil, apperrors.NewNetworkError("failed to fetch stack", err)
	}
	s.notify(ctx, observer.SegmentationEvent{
		EventType: observer.StackFetched,
		Timestamp: time.Now(),
		StackURL:  stackURL,
		Success:   true,
	})

	result, err := s.classifier.RunWithOptions(ctx, stack, options)
	if err != nil {
		s.notifyFailure(ctx, stackURL, start, err)
		return nil, err
	}

	response := s.buildResponse(stackURL, start, options, result)
	s.notifySuccess(ctx, stackURL, start, result)
	return response, nil
}

// ImportProbabilities fetches a classifier export and labels it without
// running the classifier
func (s *segmentationService) ImportProbabilities(ctx context.Context, exportURL string, labelerType string) (*models.SegmentationResponse, error) {
	options, err := optionsFor(labelerType)
	if err != nil {
		return nil, err
	}

	if err := s.ValidateStackURL(exportURL); err != nil {
		return nil, apperrors.NewValidationError("invalid export URL", err)
	}

	start := time.Now()
	s.notify(ctx, observer.SegmentationEvent{
		EventType: observer.SegmentationStarted,
		Timestamp: start,
		StackURL:  exportURL,
	})

	data, err := s.stackRepo.FetchRaw(ctx, exportURL)
	if err != nil {
		s.notifyFetchFailure(ctx, exportURL, err)
		s.notifyFailure(ctx, exportURL, start, err)
		return nil, apperrors.NewNetworkError("failed to fetch classifier export", err)
	}

	// The HDF5 reader works on paths, not readers, so the export is staged
	// in a temp file for the duration of the import.
	tempFile, err := os.CreateTemp("", "probabilities-*.h5")
	if err != nil {
		return nil, apperrors.NewInternalError("failed to stage classifier export", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return nil, apperrors.NewInternalError("failed to stage classifier export", err)
	}
	if err := tempFile.Close(); err != nil {
		return nil, apperrors.NewInternalError("failed to stage classifier export", err)
	}

	result, err := ilastik.ImportResult(tempFile.Name(), options)
	if err != nil {
		s.notifyFailure(ctx, exportURL, start, err)
		return nil, err
	}

	response := s.buildResponse(exportURL, start, options, result)
	s.notifySuccess(ctx, exportURL, start, result)
	return response, nil
}

// SegmentBatch runs SegmentStack over several URLs through a worker pool
func (s *segmentationService) SegmentBatch(ctx context.Context, stackURLs []string, labelerType string) (*models.BatchSegmentationResponse, error) {
	if len(stackURLs) == 0 {
		return nil, apperrors.NewValidationError("batch contains no stack URLs", nil)
	}
	if _, err := optionsFor(labelerType); err != nil {
		return nil, err
	}

	pool := analyzer.NewWorkerPool(s.maxWorkers)
	pool.Start()
	defer pool.Close()

	results := make([]models.BatchItemResult, len(stackURLs))
	for i, stackURL := range stackURLs {
		i, stackURL := i, stackURL
		pool.Submit(func() {
			response, err := s.SegmentStack(ctx, stackURL, labelerType)
			if err != nil {
				results[i] = models.BatchItemResult{StackURL: stackURL, Error: err.Error()}
				return
			}
			results[i] = models.BatchItemResult{StackURL: stackURL, Result: response}
		})
	}
	pool.Wait()

	batch := &models.BatchSegmentationResponse{Results: results}
	for _, item := range results {
		if item.Error != "" {
			batch.Failed++
		} else {
			batch.Succeeded++
		}
	}
	return batch, nil
}

// GetStackMetadata describes a stack without segmenting it
func (s *segmentationService) GetStackMetadata(ctx context.Context, stackURL string) (*models.StackMetadata, error) {
	if err := s.ValidateStackURL(stackURL); err != nil {
		return nil, apperrors.NewValidationError("invalid stack URL", err)
	}

	meta, err := s.stackRepo.GetStackMetadata(ctx, stackURL)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to describe stack", err)
	}

	return &models.StackMetadata{
		ContentLength: meta.ContentLength,
		Format:        meta.Format,
		Shape:         meta.Shape,
	}, nil
}

// ValidateStackURL validates the stack URL
func (s *segmentationService) ValidateStackURL(stackURL string) error {
	return s.stackRepo.ValidateStackURL(stackURL)
}

// optionsFor maps a request-level labeler name onto labeling options
func optionsFor(labelerType string) (analyzer.LabelingOptions, error) {
	options, err := factory.LabelingOptionsFor(factory.LabelerType(labelerType))
	if err != nil {
		return analyzer.LabelingOptions{}, apperrors.NewValidationError(
			fmt.Sprintf("unknown labeler %q", labelerType), err)
	}
	return options, nil
}

func (s *segmentationService) buildResponse(stackURL string, start time.Time, options analyzer.LabelingOptions, result *ilastik.Result) *models.SegmentationResponse {
	stats := analyzer.ComputeLabelStats(result.Labeling.Labels)

	return &models.SegmentationResponse{
		StackURL:          stackURL,
		Timestamp:         start.Format("2006-01-02T15:04:05Z07:00"),
		ProcessingTimeSec: time.Since(start).Seconds(),
		Shape:             result.Stack.Shape(),
		Labeling: models.LabelingSummary{
			Threshold:     result.Labeling.Threshold,
			Strategy:      options.Threshold.GetStrategyName(),
			Connectivity:  options.Connectivity,
			NumComponents: result.Labeling.NumComponents,
		},
		Stats: models.ComponentStats{
			NumComponents:        stats.NumComponents,
			TotalPixels:          stats.TotalPixels,
			ForegroundPixels:     stats.ForegroundPixels,
			ForegroundFraction:   stats.ForegroundFraction,
			LargestComponentArea: stats.LargestComponentArea,
			MeanComponentArea:    stats.MeanComponentArea,
		},
	}
}

func (s *segmentationService) notify(ctx context.Context, event observer.SegmentationEvent) {
	if s.publisher != nil {
		s.publisher.NotifyObservers(ctx, event)
	}
}

func (s *segmentationService) notifySuccess(ctx context.Context, stackURL string, start time.Time, result *ilastik.Result) {
	s.notify(ctx, observer.SegmentationEvent{
		EventType:      observer.SegmentationCompleted,
		Timestamp:      time.Now(),
		StackURL:       stackURL,
		ProcessingTime: time.Since(start),
		Success:        true,
		NumComponents:  result.Labeling.NumComponents,
	})
}

func (s *segmentationService) notifyFailure(ctx context.Context, stackURL string, start time.Time, err error) {
	s.notify(ctx, observer.SegmentationEvent{
		EventType:      observer.SegmentationFailed,
		Timestamp:      time.Now(),
		StackURL:       stackURL,
		ProcessingTime: time.Since(start),
		ErrorMessage:   err.Error(),
	})
}

func (s *segmentationService) notifyFetchFailure(ctx context.Context, stackURL string, err error) {
	s.notify(ctx, observer.SegmentationEvent{
		EventType:    observer.StackFetchFailed,
		Timestamp:    time.Now(),
		StackURL:     stackURL,
		ErrorMessage: err.Error(),
	})
}
