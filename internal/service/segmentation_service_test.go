package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/hdf5"

	"go-cell-segmenter/internal/analyzer"
	apperrors "go-cell-segmenter/internal/errors"
	"go-cell-segmenter/internal/ilastik"
	"go-cell-segmenter/internal/imagestack"
	"go-cell-segmenter/internal/observer"
	"go-cell-segmenter/internal/repository"
)

type fakeRepository struct {
	stacks map[string]*imagestack.ImageStack
	raw    map[string][]byte
}

func (r *fakeRepository) FetchStack(ctx context.Context, stackURL string) (*imagestack.ImageStack, error) {
	stack, ok := r.stacks[stackURL]
	if !ok {
		return nil, fmt.Errorf("no stack at %s", stackURL)
	}
	return stack, nil
}

func (r *fakeRepository) FetchRaw(ctx context.Context, stackURL string) ([]byte, error) {
	data, ok := r.raw[stackURL]
	if !ok {
		return nil, fmt.Errorf("no payload at %s", stackURL)
	}
	return data, nil
}

func (r *fakeRepository) ValidateStackURL(stackURL string) error {
	if !strings.HasPrefix(stackURL, "http://") {
		return fmt.Errorf("unsupported URL: %s", stackURL)
	}
	return nil
}

func (r *fakeRepository) GetStackMetadata(ctx context.Context, stackURL string) (*repository.StackMetadata, error) {
	return &repository.StackMetadata{
		ContentLength: 160,
		Format:        "npy",
		Shape:         [imagestack.NumAxes]int{1, 1, 1, 2, 2},
	}, nil
}

type fakeClassifier struct {
	mu     sync.Mutex
	calls  int
	result *ilastik.Result
	err    error
}

func (c *fakeClassifier) Run(ctx context.Context, stack *imagestack.ImageStack) (*ilastik.Result, error) {
	return c.RunWithOptions(ctx, stack, analyzer.DefaultOptions())
}

func (c *fakeClassifier) RunWithOptions(ctx context.Context, stack *imagestack.ImageStack, options analyzer.LabelingOptions) (*ilastik.Result, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

// syncPublisher records events synchronously so tests can assert on them
// without waiting for goroutines.
type syncPublisher struct {
	mu     sync.Mutex
	events []observer.SegmentationEvent
}

func (p *syncPublisher) Subscribe(observer.Observer)   {}
func (p *syncPublisher) Unsubscribe(observer.Observer) {}
func (p *syncPublisher) NotifyObservers(ctx context.Context, event observer.SegmentationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *syncPublisher) types() []observer.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]observer.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType)
	}
	return types
}

func smallStack(t *testing.T) *imagestack.ImageStack {
	t.Helper()
	stack, err := imagestack.FromValues([imagestack.NumAxes]int{1, 1, 1, 2, 2}, []float32{0.1, 0.9, 0.9, 0.1})
	require.NoError(t, err)
	return stack
}

func fabricatedResult(t *testing.T) *ilastik.Result {
	t.Helper()
	labels := [][]int32{
		{1, 0, 0, 2},
		{1, 0, 0, 2},
	}
	stack, err := imagestack.FromLabels(labels)
	require.NoError(t, err)
	return &ilastik.Result{
		Stack: stack,
		Labeling: analyzer.LabelResult{
			Labels:        labels,
			Threshold:     0.47,
			NumComponents: 2,
		},
	}
}

func TestSegmentStack_Success(t *testing.T) {
	const url = "http://example.com/stack.npy"
	repo := &fakeRepository{stacks: map[string]*imagestack.ImageStack{url: smallStack(t)}}
	classifier := &fakeClassifier{result: fabricatedResult(t)}
	publisher := &syncPublisher{}

	svc := NewSegmentationService(repo, classifier, publisher, 2)
	response, err := svc.SegmentStack(context.Background(), url, "")
	require.NoError(t, err)

	require.Equal(t, url, response.StackURL)
	require.Equal(t, [5]int{1, 1, 1, 2, 4}, response.Shape)
	require.Equal(t, float32(0.47), response.Labeling.Threshold)
	require.Equal(t, "otsu", response.Labeling.Strategy)
	require.Equal(t, 4, response.Labeling.Connectivity)
	require.Equal(t, 2, response.Labeling.NumComponents)
	require.Equal(t, 2, response.Stats.NumComponents)
	require.Equal(t, 8, response.Stats.TotalPixels)
	require.Equal(t, 4, response.Stats.ForegroundPixels)

	require.Equal(t, []observer.EventType{
		observer.SegmentationStarted,
		observer.StackFetched,
		observer.SegmentationCompleted,
	}, publisher.types())
}

func TestSegmentStack_FetchFailure(t *testing.T) {
	repo := &fakeRepository{stacks: map[string]*imagestack.ImageStack{}}
	classifier := &fakeClassifier{result: fabricatedResult(t)}
	publisher := &syncPublisher{}

	svc := NewSegmentationService(repo, classifier, publisher, 2)
	_, err := svc.SegmentStack(context.Background(), "http://example.com/missing.npy", "")
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeNetwork))
	require.Equal(t, 0, classifier.calls)

	require.Contains(t, publisher.types(), observer.StackFetchFailed)
	require.Contains(t, publisher.types(), observer.SegmentationFailed)
}

func TestSegmentStack_InvalidURL(t *testing.T) {
	repo := &fakeRepository{}
	svc := NewSegmentationService(repo, &fakeClassifier{}, nil, 2)

	_, err := svc.SegmentStack(context.Background(), "ftp://example.com/stack.npy", "")
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestSegmentStack_UnknownLabeler(t *testing.T) {
	svc := NewSegmentationService(&fakeRepository{}, &fakeClassifier{}, nil, 2)
	_, err := svc.SegmentStack(context.Background(), "http://example.com/stack.npy", "banana")
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestImportProbabilities_Success(t *testing.T) {
	const url = "http://example.com/export.h5"
	payload := exportPayload(t, [][]float32{
		{0.05, 0.95, 0.05},
		{0.05, 0.95, 0.05},
	})
	repo := &fakeRepository{raw: map[string][]byte{url: payload}}

	svc := NewSegmentationService(repo, &fakeClassifier{}, &syncPublisher{}, 2)
	response, err := svc.ImportProbabilities(context.Background(), url, "")
	require.NoError(t, err)

	require.Equal(t, [5]int{1, 1, 1, 2, 3}, response.Shape)
	require.Equal(t, 1, response.Labeling.NumComponents)
}

func TestSegmentBatch_MixedResults(t *testing.T) {
	const good = "http://example.com/good.npy"
	repo := &fakeRepository{stacks: map[string]*imagestack.ImageStack{good: smallStack(t)}}
	classifier := &fakeClassifier{result: fabricatedResult(t)}

	svc := NewSegmentationService(repo, classifier, &syncPublisher{}, 2)
	batch, err := svc.SegmentBatch(context.Background(),
		[]string{good, "http://example.com/missing.npy", good}, "")
	require.NoError(t, err)

	require.Len(t, batch.Results, 3)
	require.Equal(t, 2, batch.Succeeded)
	require.Equal(t, 1, batch.Failed)
	require.Equal(t, good, batch.Results[0].StackURL)
	require.NotNil(t, batch.Results[0].Result)
	require.NotEmpty(t, batch.Results[1].Error)
}

func TestGetStackMetadata_Success(t *testing.T) {
	svc := NewSegmentationService(&fakeRepository{}, &fakeClassifier{}, nil, 2)

	meta, err := svc.GetStackMetadata(context.Background(), "http://example.com/stack.npy")
	require.NoError(t, err)
	require.Equal(t, int64(160), meta.ContentLength)
	require.Equal(t, "npy", meta.Format)
	require.Equal(t, [5]int{1, 1, 1, 2, 2}, meta.Shape)
}

func TestGetStackMetadata_InvalidURL(t *testing.T) {
	svc := NewSegmentationService(&fakeRepository{}, &fakeClassifier{}, nil, 2)

	_, err := svc.GetStackMetadata(context.Background(), "ftp://example.com/stack.npy")
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestSegmentBatch_Empty(t *testing.T) {
	svc := NewSegmentationService(&fakeRepository{}, &fakeClassifier{}, nil, 2)
	_, err := svc.SegmentBatch(context.Background(), nil, "")
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

// exportPayload builds the bytes of an ilastik-shaped HDF5 export.
func exportPayload(t *testing.T, prob [][]float32) []byte {
	t.Helper()

	height, width := len(prob), len(prob[0])
	raw := make([]float32, height*width*2)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			base := (y*width + x) * 2
			raw[base] = prob[y][x]
			raw[base+1] = 1 - prob[y][x]
		}
	}

	path := filepath.Join(t.TempDir(), "export.h5")
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	require.NoError(t, err)
	space, err := hdf5.CreateSimpleDataspace([]uint{uint(height), uint(width), 2}, nil)
	require.NoError(t, err)
	dset, err := f.CreateDataset("exported_data", hdf5.T_NATIVE_FLOAT, space)
	require.NoError(t, err)
	require.NoError(t, dset.Write(&raw))
	require.NoError(t, dset.Close())
	require.NoError(t, space.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
