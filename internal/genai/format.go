package genai

import (
	"fmt"
	"sort"
	"strings"

	"company-intel/internal/models"
)

const maxContentChars = 500

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// FormatEvidence renders combined evidence for evaluation as
// "Source(<name>):\n<content>" blocks. Blank items are skipped.
func FormatEvidence(items []models.EvidenceItem) string {
	blocks := make([]string, 0, len(items))
	for _, item := range items {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		source := item.SourceName
		if source == "" {
			source = "Unknown"
		}
		blocks = append(blocks, fmt.Sprintf("Source(%s):\n%s", source, truncateRunes(content, maxContentChars)))
	}
	return strings.Join(blocks, "\n\n")
}

// FormatPartialEvidence renders evidence grouped by source tag, in tag order.
func FormatPartialEvidence(bySource map[string][]models.EvidenceItem) string {
	tags := make([]string, 0, len(bySource))
	for tag := range bySource {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	var blocks []string
	for _, tag := range tags {
		for _, item := range bySource[tag] {
			if item.Content == "" {
				continue
			}
			blocks = append(blocks, fmt.Sprintf("Source: %s\nContent: %s", tag, truncateRunes(item.Content, maxContentChars)))
		}
	}
	return strings.Join(blocks, "\n\n")
}
