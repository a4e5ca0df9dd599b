package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"company-intel/internal/models"
)

const newsQuery = "latest news about OpenAI after:2026-10-08"

func validState(evidence ...models.EvidenceItem) *PipelineState {
	return &PipelineState{
		Verdict:   models.NewVerdict(0.9, nil, nil, ""),
		EvidenceB: evidence,
	}
}

func TestSynthesize_Clarification(t *testing.T) {
	st := &PipelineState{
		NeedsClarification: true,
		Ambiguity:          models.AmbiguousVerdict("Which OpenAI entity do you mean?"),
		Verdict:            models.NewVerdict(0.95, nil, nil, ""),
	}

	got := Synthesize(st)

	assert.Equal(t, models.Answer{ResponseText: "Which OpenAI entity do you mean?"}, got)

	st.Ambiguity = models.AmbiguousVerdict("")
	assert.Equal(t, MsgClarifyFallback, Synthesize(st).ResponseText)

	st.Ambiguity = nil
	assert.Equal(t, MsgClarifyFallback, Synthesize(st).ResponseText)
}

func TestSynthesize_InvalidOrMissingVerdict(t *testing.T) {
	assert.Equal(t, models.Answer{ResponseText: MsgInsufficient}, Synthesize(&PipelineState{}))

	st := &PipelineState{Verdict: models.NewVerdict(0.69, nil, []string{"x"}, "")}
	assert.Equal(t, models.Answer{ResponseText: MsgInsufficient}, Synthesize(st))
}

func TestSynthesize_ValidVerdictWithoutEvidence(t *testing.T) {
	got := Synthesize(&PipelineState{Verdict: models.NewVerdict(0.8, nil, nil, "")})

	assert.Equal(t, MsgNoEvidence, got.ResponseText)
	assert.Equal(t, 0.8, got.ConfidenceScore)
}

func TestSynthesize_NewsDigest(t *testing.T) {
	st := validState(
		models.EvidenceItem{
			Content:     "OpenAI [1] announced a new model today... (Opens in new window)  More   details.",
			SourceName:  "Tavily",
			OriginQuery: newsQuery,
			URL:         strPtr("https://example.com/a"),
		},
		models.EvidenceItem{
			Content:     "OpenAI announced a new model today. More details. [edit]",
			SourceName:  "Tavily",
			OriginQuery: newsQuery,
			URL:         strPtr("https://example.com/b"),
		},
		models.EvidenceItem{Content: "Too short", SourceName: "Tavily", OriginQuery: newsQuery},
		models.EvidenceItem{
			Content:     "OpenAI signs a partnership with a chip maker",
			SourceName:  "Tavily",
			OriginQuery: newsQuery,
		},
	)

	got := Synthesize(st)

	want := "Latest news:\n\n" +
		"• OpenAI announced a new model today. More details. (Source: Tavily, https://example.com/a)\n\n" +
		"• OpenAI signs a partnership with a chip maker (Source: Tavily)"
	assert.Equal(t, want, got.ResponseText)
	assert.Equal(t, 0.9, got.ConfidenceScore)
}

func TestSynthesize_NewsDigestKeepsThreeItems(t *testing.T) {
	var items []models.EvidenceItem
	for _, c := range []string{
		"First headline about the company",
		"Second headline about the company",
		"Third headline about the company",
		"Fourth headline about the company",
	} {
		items = append(items, models.EvidenceItem{Content: c, SourceName: "Tavily", OriginQuery: newsQuery})
	}

	got := Synthesize(validState(items...)).ResponseText

	assert.Equal(t, 3, strings.Count(got, "• "))
	assert.NotContains(t, got, "Fourth")
}

func TestSynthesize_NewsLongItemKeepsFirstSentence(t *testing.T) {
	content := "The first sentence is here! " + strings.Repeat("filler ", 40)
	st := validState(models.EvidenceItem{Content: content, OriginQuery: "OpenAI NEWS"})

	got := Synthesize(st).ResponseText

	assert.Equal(t, "Latest news:\n\n• The first sentence is here.", got)
}

func TestSynthesize_NewsWithNothingUsable(t *testing.T) {
	st := validState(models.EvidenceItem{Content: "[ad] tiny", SourceName: "Tavily", OriginQuery: newsQuery})

	assert.Equal(t, MsgNoNews, Synthesize(st).ResponseText)
}

func TestSynthesize_FactFromKeyFinding(t *testing.T) {
	st := &PipelineState{
		Verdict: models.NewVerdict(0.8, nil, []string{"  Anthropic is based in San Francisco  "}, ""),
		EvidenceA: []models.EvidenceItem{
			{Content: "a", SourceName: "Wikipedia"},
			{Content: "b", SourceName: "Wikipedia"},
		},
		EvidenceB: []models.EvidenceItem{{Content: "c", SourceName: "Tavily"}},
	}

	got := Synthesize(st)

	assert.Equal(t, "Anthropic is based in San Francisco. (Source: Wikipedia)", got.ResponseText)
	assert.Equal(t, 0.8, got.ConfidenceScore)
}

func TestSynthesize_FactFromTruncatedContent(t *testing.T) {
	content := "  Alpha company is based in Paris. " + strings.Repeat("x", 300)
	st := validState(models.EvidenceItem{Content: content, SourceName: "Wikipedia"})

	got := Synthesize(st).ResponseText

	assert.Equal(t, "Alpha company is based in Paris. (Source: Wikipedia)", got)
}

func TestSynthesize_FactWithoutSources(t *testing.T) {
	st := validState(models.EvidenceItem{Content: "Beta Corp makes widgets"})

	assert.Equal(t, "Beta Corp makes widgets.", Synthesize(st).ResponseText)
}

func TestTruncateAtSentence(t *testing.T) {
	assert.Equal(t, "short", truncateAtSentence("short", 10))
	assert.Equal(t, "abcdefghij.", truncateAtSentence("abcdefghijklmnop", 10))
	assert.Equal(t, "ab.", truncateAtSentence("ab.cdefghijklmnop", 10))
}
