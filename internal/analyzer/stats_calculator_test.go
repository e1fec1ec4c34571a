package analyzer

import (
	"testing"
)

func TestComputeLabelStats(t *testing.T) {
	labels := [][]int32{
		{0, 1, 1, 0},
		{0, 1, 0, 2},
		{0, 0, 0, 2},
	}

	stats := ComputeLabelStats(labels)

	if stats.NumComponents != 2 {
		t.Errorf("Expected 2 components, got %d", stats.NumComponents)
	}
	if stats.TotalPixels != 12 {
		t.Errorf("Expected 12 total pixels, got %d", stats.TotalPixels)
	}
	if stats.ForegroundPixels != 5 {
		t.Errorf("Expected 5 foreground pixels, got %d", stats.ForegroundPixels)
	}
	if stats.LargestComponentArea != 3 {
		t.Errorf("Expected largest component area 3, got %d", stats.LargestComponentArea)
	}
	if stats.MeanComponentArea != 2.5 {
		t.Errorf("Expected mean component area 2.5, got %f", stats.MeanComponentArea)
	}
	if stats.ForegroundFraction <= 0.41 || stats.ForegroundFraction >= 0.42 {
		t.Errorf("Expected foreground fraction ~5/12, got %f", stats.ForegroundFraction)
	}
}

func TestComputeLabelStats_AllBackground(t *testing.T) {
	labels := [][]int32{
		{0, 0},
		{0, 0},
	}

	stats := ComputeLabelStats(labels)

	if stats.NumComponents != 0 {
		t.Errorf("Expected 0 components, got %d", stats.NumComponents)
	}
	if stats.ForegroundFraction != 0 {
		t.Errorf("Expected zero foreground fraction, got %f", stats.ForegroundFraction)
	}
	if stats.MeanComponentArea != 0 {
		t.Errorf("Expected zero mean area, got %f", stats.MeanComponentArea)
	}
}

func TestComputeLabelStats_Empty(t *testing.T) {
	stats := ComputeLabelStats(nil)

	if stats.TotalPixels != 0 || stats.NumComponents != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
}
