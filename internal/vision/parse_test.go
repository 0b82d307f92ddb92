package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected *DetectedItem
	}{
		{
			name:     "full item",
			line:     "Obeng | 2 pcs | gagang merah",
			expected: &DetectedItem{Name: "Obeng", Quantity: "2 pcs", Notes: "gagang merah"},
		},
		{
			name:     "name and quantity only",
			line:     "Kabel HDMI | 3",
			expected: &DetectedItem{Name: "Kabel HDMI", Quantity: "3", Notes: ""},
		},
		{
			name:     "bullet prefix",
			line:     "- Mouse | 1 |",
			expected: &DetectedItem{Name: "Mouse", Quantity: "1", Notes: ""},
		},
		{
			name:     "pipe inside notes",
			line:     "Box | 1 | label: A|B",
			expected: &DetectedItem{Name: "Box", Quantity: "1", Notes: "label: A|B"},
		},
		{
			// Lines without a pipe separator are indistinguishable from preamble.
			name:     "name only without pipe",
			line:     "Laptop",
			expected: nil,
		},
		{name: "empty line", line: "", expected: nil},
		{name: "whitespace only", line: "   ", expected: nil},
		{name: "header line Here", line: "Here are the items: | x", expected: nil},
		{name: "empty name", line: " | 2 | ", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLine(tt.line))
		})
	}
}

func TestParseResponse(t *testing.T) {
	raw := `Here are the items I see:
Laptop | 1 | hitam

Charger | 2 pcs |
Some closing remark.`

	assert.Equal(t, []DetectedItem{
		{Name: "Laptop", Quantity: "1", Notes: "hitam"},
		{Name: "Charger", Quantity: "2 pcs", Notes: ""},
	}, ParseResponse(raw))

	assert.Equal(t, []DetectedItem{}, ParseResponse("nothing useful"))
}

func TestParseQuantity(t *testing.T) {
	tests := map[string]int{
		"3":         3,
		"12 pcs":    12,
		" 4 boxes ": 4,
		"":          1,
		"a few":     1,
		"0":         1,
		"about 5":   1,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseQuantity(in), in)
	}
	assert.Equal(t, 2, DetectedItem{Quantity: "2 buah"}.Count())
}
