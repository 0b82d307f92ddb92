package vision

import (
	"context"
	"io"
)

// AnalysisPrompt is the shared prompt used by all vision adapters.
const AnalysisPrompt = `List every distinct physical item you can see stored in this locker, shelf or box photo.
For each item provide: a short name, the count you can see, and any relevant notes
(e.g. brand, colour, condition). Respond in plain text, one item per line,
format: name | quantity | notes`

type VisionAnalyzer interface {
	Analyze(ctx context.Context, r io.Reader, mimeType string) (*AnalysisResult, error)
}

type AnalysisResult struct {
	Items       []DetectedItem
	RawResponse string
}

type DetectedItem struct {
	Name     string
	Quantity string
	Notes    string
}

// Count is the integer quantity of the item, defaulting to 1.
func (d DetectedItem) Count() int {
	return ParseQuantity(d.Quantity)
}
