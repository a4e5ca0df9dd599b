// internal/models/evidence.go
package models

// EvidenceItem is one unit of retrieved text plus its attribution.
type EvidenceItem struct {
	Content     string  `json:"content"`
	SourceName  string  `json:"source"`
	OriginQuery string  `json:"query"`
	URL         *string `json:"url,omitempty"`
}

// Combine concatenates evidence lists in argument order. The result never
// aliases the inputs.
func Combine(lists ...[]EvidenceItem) []EvidenceItem {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]EvidenceItem, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
