package vision

import (
	"strconv"
	"strings"
	"unicode"
)

var preamblePrefixes = []string{"Here", "I see", "Based on", "Berikut"}

// ParseLine parses a single "name | quantity | notes" line. Lines without a
// pipe are treated as model chatter and return nil.
func ParseLine(line string) *DetectedItem {
	line = strings.TrimSpace(line)
	if line == "" || !strings.Contains(line, "|") {
		return nil
	}
	for _, p := range preamblePrefixes {
		if strings.HasPrefix(line, p) {
			return nil
		}
	}

	line = strings.TrimLeft(line, "-*• ")
	parts := strings.Split(line, "|")
	item := &DetectedItem{Name: strings.TrimSpace(parts[0])}
	if len(parts) >= 2 {
		item.Quantity = strings.TrimSpace(parts[1])
	}
	if len(parts) >= 3 {
		item.Notes = strings.TrimSpace(strings.Join(parts[2:], "|"))
	}
	if item.Name == "" {
		return nil
	}
	return item
}

// ParseResponse parses a model response, one item per line.
func ParseResponse(raw string) []DetectedItem {
	items := make([]DetectedItem, 0)
	for _, line := range strings.Split(raw, "\n") {
		if item := ParseLine(line); item != nil {
			items = append(items, *item)
		}
	}
	return items
}

// ParseQuantity reads the leading integer of free-form quantity text
// ("3 pcs", "12"). Anything without one counts as 1.
func ParseQuantity(s string) int {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(s)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
