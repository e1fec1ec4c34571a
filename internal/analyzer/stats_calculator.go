package analyzer

// LabelStats summarises a label image for reporting
type LabelStats struct {
	NumComponents        int     `json:"num_components"`
	TotalPixels          int     `json:"total_pixels"`
	ForegroundPixels     int     `json:"foreground_pixels"`
	ForegroundFraction   float64 `json:"foreground_fraction"`
	LargestComponentArea int     `json:"largest_component_area"`
	MeanComponentArea    float64 `json:"mean_component_area"`
}

// ComputeLabelStats derives summary statistics from an integer label image.
// Label 0 is background.
func ComputeLabelStats(labels [][]int32) LabelStats {
	areas := make(map[int32]int)
	total := 0
	foreground := 0

	for _, row := range labels {
		total += len(row)
		for _, label := range row {
			if label == 0 {
				continue
			}
			foreground++
			areas[label]++
		}
	}

	stats := LabelStats{
		NumComponents:    len(areas),
		TotalPixels:      total,
		ForegroundPixels: foreground,
	}
	if total > 0 {
		stats.ForegroundFraction = float64(foreground) / float64(total)
	}
	for _, area := range areas {
		if area > stats.LargestComponentArea {
			stats.LargestComponentArea = area
		}
	}
	if len(areas) > 0 {
		stats.MeanComponentArea = float64(foreground) / float64(len(areas))
	}
	return stats
}
