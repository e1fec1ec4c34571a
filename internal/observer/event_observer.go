package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SegmentationEvent represents a segmentation lifecycle event
type SegmentationEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	StackURL       string                 `json:"stack_url"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	NumComponents  int                    `json:"num_components,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of segmentation event
type EventType string

const (
	// SegmentationStarted when segmentation begins
	SegmentationStarted EventType = "segmentation_started"
	// SegmentationCompleted when segmentation finishes successfully
	SegmentationCompleted EventType = "segmentation_completed"
	// SegmentationFailed when segmentation fails
	SegmentationFailed EventType = "segmentation_failed"
	// StackFetched when a stack is successfully fetched
	StackFetched EventType = "stack_fetched"
	// StackFetchFailed when a stack fetch fails
	StackFetchFailed EventType = "stack_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event SegmentationEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event SegmentationEvent)
}

// LoggingObserver logs segmentation events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles segmentation events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event SegmentationEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"stack_url":       event.StackURL,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.NumComponents > 0 {
		fields["num_components"] = event.NumComponents
	}

	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	if event.Metadata != nil {
		for k, v := range event.Metadata {
			fields[k] = v
		}
	}

	switch event.EventType {
	case SegmentationStarted:
		o.logger.WithFields(fields).Info("Stack segmentation started")
	case SegmentationCompleted:
		o.logger.WithFields(fields).Info("Stack segmentation completed")
	case SegmentationFailed:
		o.logger.WithFields(fields).Error("Stack segmentation failed")
	case StackFetched:
		o.logger.WithFields(fields).Debug("Stack fetched successfully")
	case StackFetchFailed:
		o.logger.WithFields(fields).Error("Stack fetch failed")
	default:
		o.logger.WithFields(fields).Info("Segmentation event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects metrics from segmentation events
type MetricsObserver struct {
	mu                      sync.RWMutex
	totalSegmentations      int64
	successfulSegmentations int64
	failedSegmentations     int64
	totalProcessingTime     time.Duration
	totalComponents         int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() Observer {
	return &MetricsObserver{}
}

// OnEvent handles segmentation events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event SegmentationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case SegmentationStarted:
		o.totalSegmentations++
	case SegmentationCompleted:
		o.successfulSegmentations++
		o.totalProcessingTime += event.ProcessingTime
		o.totalComponents += int64(event.NumComponents)
	case SegmentationFailed:
		o.failedSegmentations++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	avgComponents := float64(0)
	if o.successfulSegmentations > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulSegmentations)
		avgComponents = float64(o.totalComponents) / float64(o.successfulSegmentations)
	}

	return map[string]interface{}{
		"total_segmentations":      o.totalSegmentations,
		"successful_segmentations": o.successfulSegmentations,
		"failed_segmentations":     o.failedSegmentations,
		"total_processing_time":    o.totalProcessingTime,
		"avg_processing_time":      avgProcessingTime,
		"total_components":         o.totalComponents,
		"avg_components":           avgComponents,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() Subject {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event SegmentationEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
