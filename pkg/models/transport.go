package models

// SegmentationRequest represents a request to classify and label one stack
type SegmentationRequest struct {
	URL string `json:"url" binding:"required"`

	// Labeler optionally overrides the default labeling configuration
	// ("otsu", "otsu-diagonal" or "midpoint")
	Labeler string `json:"labeler,omitempty"`
}

// ImportRequest represents a request to label an already-produced classifier
// export without invoking the classifier
type ImportRequest struct {
	URL     string `json:"url" binding:"required"`
	Labeler string `json:"labeler,omitempty"`
}

// BatchSegmentationRequest represents a request to segment several stacks
type BatchSegmentationRequest struct {
	URLs    []string `json:"urls" binding:"required"`
	Labeler string   `json:"labeler,omitempty"`
}

// StackMetadataRequest represents a request to describe a stack without
// segmenting it
type StackMetadataRequest struct {
	URL string `json:"url" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SegmentationResponse represents the response for a single stack
type SegmentationResponse struct {
	StackURL          string          `json:"stack_url"`
	Timestamp         string          `json:"timestamp"`
	ProcessingTimeSec float64         `json:"processing_time_sec"`
	Shape             [5]int          `json:"shape"`
	Labeling          LabelingSummary `json:"labeling"`
	Stats             ComponentStats  `json:"stats"`
	Errors            []string        `json:"errors,omitempty"`
}

// BatchItemResult pairs a stack URL with its outcome
type BatchItemResult struct {
	StackURL string                `json:"stack_url"`
	Result   *SegmentationResponse `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// BatchSegmentationResponse represents the response for a batch request
type BatchSegmentationResponse struct {
	Results   []BatchItemResult `json:"results"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}
