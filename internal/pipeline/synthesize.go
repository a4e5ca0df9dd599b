package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"company-intel/internal/models"
)

const (
	MsgClarifyFallback  = "Please clarify your query"
	MsgInsufficient     = "Could not find enough reliable information to answer your query"
	MsgNoEvidence       = "No relevant information found."
	MsgNoNews           = "No recent news found for this query."
	MsgSynthesisFailed  = "An error occurred while generating the response"
	newsHeader          = "Latest news:"
	maxNewsItems        = 3
	maxNewsChars        = 200
	minNewsChars        = 20
	maxFactChars        = 200
	maxCitedSourceItems = 2
)

var (
	bracketRe     = regexp.MustCompile(`\[.*?\]`)
	ellipsisRe    = regexp.MustCompile(`\.{2,}`)
	sentenceEndRe = regexp.MustCompile(`[.!?]`)
)

// Synthesize turns the final state into the answer text and confidence.
// It is deterministic and never fails.
func Synthesize(st *PipelineState) models.Answer {
	if st.NeedsClarification {
		msg := MsgClarifyFallback
		if st.Ambiguity != nil && st.Ambiguity.ClarificationMessage != nil && *st.Ambiguity.ClarificationMessage != "" {
			msg = *st.Ambiguity.ClarificationMessage
		}
		return models.Answer{ResponseText: msg, ConfidenceScore: 0}
	}

	if st.Verdict == nil || !st.Verdict.IsValid {
		return models.Answer{ResponseText: MsgInsufficient, ConfidenceScore: 0}
	}

	confidence := st.Verdict.Confidence
	evidence := st.Evidence()
	if len(evidence) == 0 {
		return models.Answer{ResponseText: MsgNoEvidence, ConfidenceScore: confidence}
	}

	if isNewsQuery(evidence) {
		return models.Answer{ResponseText: newsDigest(evidence), ConfidenceScore: confidence}
	}
	return models.Answer{ResponseText: singleFact(st.Verdict, evidence), ConfidenceScore: confidence}
}

func isNewsQuery(evidence []models.EvidenceItem) bool {
	for _, item := range evidence {
		if strings.Contains(strings.ToLower(item.OriginQuery), "news") {
			return true
		}
	}
	return false
}

// cleanNewsContent strips bracketed annotations and UI artifacts and
// shortens long items to their first sentence.
func cleanNewsContent(content string) string {
	content = bracketRe.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "(Opens in new window)", "")
	content = ellipsisRe.ReplaceAllString(content, ".")
	content = strings.Join(strings.Fields(content), " ")

	if utf8.RuneCountInString(content) > maxNewsChars {
		if first := sentenceEndRe.Split(content, 2)[0]; first != "" {
			content = first + "."
		}
	}
	return content
}

func newsDigest(evidence []models.EvidenceItem) string {
	seen := make(map[string]bool)
	var bullets []string

	for _, item := range evidence {
		if len(bullets) == maxNewsItems {
			break
		}
		content := cleanNewsContent(item.Content)
		if utf8.RuneCountInString(content) < minNewsChars || seen[content] {
			continue
		}
		seen[content] = true

		bullet := "• " + content
		switch {
		case item.URL != nil && *item.URL != "":
			bullet += " (Source: " + sourceOrUnknown(item.SourceName) + ", " + *item.URL + ")"
		case item.SourceName != "":
			bullet += " (Source: " + item.SourceName + ")"
		}
		bullets = append(bullets, bullet)
	}

	if len(bullets) == 0 {
		return MsgNoNews
	}
	return newsHeader + "\n\n" + strings.Join(bullets, "\n\n")
}

func singleFact(verdict *models.Verdict, evidence []models.EvidenceItem) string {
	fact := ""
	for _, finding := range verdict.KeyFindings {
		if f := strings.TrimSpace(finding); f != "" {
			fact = f
			break
		}
	}
	if fact == "" {
		fact = truncateAtSentence(strings.TrimSpace(evidence[0].Content), maxFactChars)
	}
	if !strings.HasSuffix(fact, ".") {
		fact += "."
	}

	var sources []string
	seen := make(map[string]bool)
	for i, item := range evidence {
		if i == maxCitedSourceItems {
			break
		}
		if item.SourceName == "" || seen[item.SourceName] {
			continue
		}
		seen[item.SourceName] = true
		sources = append(sources, item.SourceName)
	}
	if len(sources) > 0 {
		fact += " (Source: " + strings.Join(sources, ", ") + ")"
	}
	return fact
}

// truncateAtSentence cuts s to n runes and then back to the last period.
func truncateAtSentence(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndex(cut, "."); i >= 0 {
		cut = cut[:i]
	}
	return cut + "."
}

func sourceOrUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
