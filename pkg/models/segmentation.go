package models

// LabelingSummary describes how the probability plane was binarized and
// labeled
type LabelingSummary struct {
	// Threshold is the applied probability cutoff in [0, 1]
	Threshold float32 `json:"threshold"`

	// Strategy names the cutoff selection method ("otsu" or "fixed")
	Strategy string `json:"strategy"`

	// Connectivity is the labeling neighbourhood (4 or 8)
	Connectivity int `json:"connectivity"`

	NumComponents int `json:"num_components"`
}

// ComponentStats summarizes the connected components of a label image
type ComponentStats struct {
	NumComponents        int     `json:"num_components"`
	TotalPixels          int     `json:"total_pixels"`
	ForegroundPixels     int     `json:"foreground_pixels"`
	ForegroundFraction   float64 `json:"foreground_fraction"`
	LargestComponentArea int     `json:"largest_component_area"`
	MeanComponentArea    float64 `json:"mean_component_area"`
}

// StackMetadata describes a fetched stack for the metadata endpoint. Shape is
// only populated for npy payloads; HDF5 exports are reported by size and
// format alone.
type StackMetadata struct {
	ContentLength int64  `json:"content_length"`
	Format        string `json:"format"`
	Shape         [5]int `json:"shape"`
}
