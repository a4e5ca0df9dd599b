package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"company-intel/internal/common/logger"
	"company-intel/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL + "/", APIKey: "k", Timeout: time.Second}, logger.NewTestLogger(t))
}

func TestClassifyIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, classifyPath, r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Where is OpenAI headquartered?", body["query"])

		w.Write([]byte(`{
			"query_type": "location",
			"extracted_entities": {"companies": ["OpenAI"], "products": [], "people": [], "attributes": []},
			"time_constraints": null
		}`))
	})

	intent, err := c.ClassifyIntent(context.Background(), "Where is OpenAI headquartered?")
	require.NoError(t, err)
	assert.Equal(t, models.QueryTypeLocation, intent.QueryType)
	assert.Equal(t, []string{"OpenAI"}, intent.Entities.Companies)
	assert.Equal(t, []string{}, intent.Entities.People)
	assert.Nil(t, intent.TimeConstraint)
}

func TestClassifyIntent_UnknownCategoryIsGeneral(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query_type": "weather", "time_constraints": "2023"}`))
	})

	intent, err := c.ClassifyIntent(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, models.QueryTypeGeneral, intent.QueryType)
	require.NotNil(t, intent.TimeConstraint)
	assert.Equal(t, "2023", *intent.TimeConstraint)
}

func TestClassifyIntent_SchemaViolation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"extracted_entities": {"companies": "OpenAI"}}`))
	})

	_, err := c.ClassifyIntent(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClassificationFailed))
	assert.True(t, errors.Is(err, ErrInvalidModelOutput))
}

func TestCheckAmbiguity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ambiguityPath, r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Tell me about Midas", body["query"])
		assert.Empty(t, body["retrieved_data"])

		w.Write([]byte(`{
			"is_ambiguous": true,
			"clarification_message": "Did you mean company X or Y?",
			"possible_interpretations": ["X", "Y"],
			"confidence_score": 0.4
		}`))
	})

	v, err := c.CheckAmbiguity(context.Background(), "Tell me about Midas", nil)
	require.NoError(t, err)
	assert.True(t, v.IsAmbiguous)
	require.NotNil(t, v.ClarificationMessage)
	assert.Equal(t, "Did you mean company X or Y?", *v.ClarificationMessage)
	assert.Equal(t, []string{"X", "Y"}, v.Interpretations)
	assert.Equal(t, 0.4, v.Confidence)
}

func TestCheckAmbiguity_DefaultsConfidence(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"is_ambiguous": false}`))
	})

	v, err := c.CheckAmbiguity(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.False(t, v.IsAmbiguous)
	assert.Nil(t, v.ClarificationMessage)
	assert.Equal(t, 0.5, v.Confidence)
}

func TestEvaluate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, evaluatePath, r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "location", body["query_type"])
		assert.Equal(t, "OpenAI", body["companies"])
		assert.Equal(t, "Source(Wikipedia):\nOpenAI is based in San Francisco.", body["data"])

		w.Write([]byte(`{
			"main_points": ["OpenAI is headquartered in San Francisco"],
			"missing_information": [],
			"confidence_score": 0.85,
			"summary": "HQ is in San Francisco",
			"source_quality": {"Wikipedia": 0.8}
		}`))
	})

	intent := &models.Intent{QueryType: models.QueryTypeLocation, Entities: models.Entities{Companies: []string{"OpenAI"}}}
	evidence := []models.EvidenceItem{{Content: "OpenAI is based in San Francisco.", SourceName: "Wikipedia"}}

	v, err := c.Evaluate(context.Background(), intent, "Where is OpenAI headquartered?", evidence)
	require.NoError(t, err)
	assert.True(t, v.IsValid)
	assert.Equal(t, 0.85, v.Confidence)
	assert.Equal(t, []string{"OpenAI is headquartered in San Francisco"}, v.KeyFindings)
	assert.Equal(t, "HQ is in San Francisco", v.Summary)
}

func TestEvaluate_OutOfRangeConfidenceRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"confidence_score": 7}`))
	})

	_, err := c.Evaluate(context.Background(), nil, "q", []models.EvidenceItem{{Content: "x", SourceName: "s"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEvaluationFailed))
}

func TestEvaluate_TimeoutKeepsDeadline(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Evaluate(ctx, nil, "q", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEvaluationFailed))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFormatEvidence(t *testing.T) {
	long := strings.Repeat("a", 600)
	out := FormatEvidence([]models.EvidenceItem{
		{Content: "  first  ", SourceName: "Wikipedia"},
		{Content: "   ", SourceName: "Tavily"},
		{Content: long},
	})

	parts := strings.Split(out, "\n\n")
	require.Len(t, parts, 2)
	assert.Equal(t, "Source(Wikipedia):\nfirst", parts[0])
	assert.Equal(t, "Source(Unknown):\n"+strings.Repeat("a", 500), parts[1])
}

func TestFormatPartialEvidence_SortedBySource(t *testing.T) {
	out := FormatPartialEvidence(map[string][]models.EvidenceItem{
		"web":          {{Content: "w"}},
		"encyclopedia": {{Content: "e"}, {Content: ""}},
	})
	assert.Equal(t, "Source: encyclopedia\nContent: e\n\nSource: web\nContent: w", out)
}
