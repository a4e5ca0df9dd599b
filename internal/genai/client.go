// Package genai talks to the GenAI gateway that hosts the classification,
// ambiguity and evaluation models.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	commonhttp "company-intel/internal/common/http"
	"company-intel/internal/common/logger"
	"company-intel/internal/common/validation"
	"company-intel/internal/models"
)

var (
	ErrClassificationFailed = errors.New("INTENT_CLASSIFICATION_FAILED")
	ErrAmbiguityCheckFailed = errors.New("AMBIGUITY_CHECK_FAILED")
	ErrEvaluationFailed     = errors.New("EVALUATION_FAILED")
	ErrInvalidModelOutput   = errors.New("INVALID_MODEL_OUTPUT")
)

const (
	classifyPath  = "/api/ai/classify-intent"
	ambiguityPath = "/api/ai/check-ambiguity"
	evaluatePath  = "/api/ai/evaluate"
)

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	baseURL string
	http    *commonhttp.Client
	logger  logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	opts := []commonhttp.Option{commonhttp.WithMaxRetries(cfg.MaxRetries)}
	if cfg.APIKey != "" {
		opts = append(opts, commonhttp.WithHeader("Authorization", "Bearer "+cfg.APIKey))
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    commonhttp.NewClient(cfg.Timeout, opts...),
		logger:  log.With(map[string]interface{}{"component": "genai"}),
	}
}

// call posts req, validates the raw reply against schema and decodes it.
func (c *Client) call(ctx context.Context, path string, req interface{}, schema *validation.Schema, out interface{}) error {
	var raw json.RawMessage
	if err := c.http.PostJSON(ctx, c.baseURL+path, req, &raw); err != nil {
		return err
	}

	res, err := schema.ValidateBytes(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidModelOutput, err)
	}
	if err := res.Err(); err != nil {
		c.logger.Warn("model output failed schema validation", map[string]interface{}{
			"schema": schema.Name(),
			"errors": res.GetErrorMessages(),
		})
		return fmt.Errorf("%w: %v", ErrInvalidModelOutput, err)
	}

	return json.Unmarshal(raw, out)
}

type classifyResponse struct {
	QueryType         string `json:"query_type"`
	ExtractedEntities struct {
		Companies  []string `json:"companies"`
		Products   []string `json:"products"`
		People     []string `json:"people"`
		Attributes []string `json:"attributes"`
	} `json:"extracted_entities"`
	TimeConstraints *string `json:"time_constraints"`
}

func (c *Client) ClassifyIntent(ctx context.Context, query string) (*models.Intent, error) {
	var resp classifyResponse
	if err := c.call(ctx, classifyPath, map[string]string{"query": query}, intentSchema, &resp); err != nil {
		return nil, wrap(ctx, ErrClassificationFailed, err)
	}

	intent := &models.Intent{
		QueryType: models.ParseQueryType(resp.QueryType),
		Entities: models.Entities{
			Companies:  nonNil(resp.ExtractedEntities.Companies),
			Products:   nonNil(resp.ExtractedEntities.Products),
			People:     nonNil(resp.ExtractedEntities.People),
			Attributes: nonNil(resp.ExtractedEntities.Attributes),
		},
	}
	if resp.TimeConstraints != nil && strings.TrimSpace(*resp.TimeConstraints) != "" {
		tc := strings.TrimSpace(*resp.TimeConstraints)
		intent.TimeConstraint = &tc
	}

	c.logger.Info("intent classified", map[string]interface{}{
		"queryType": intent.QueryType.String(),
		"companies": intent.Entities.Companies,
	})
	return intent, nil
}

type ambiguityResponse struct {
	IsAmbiguous             bool     `json:"is_ambiguous"`
	ClarificationMessage    *string  `json:"clarification_message"`
	PossibleInterpretations []string `json:"possible_interpretations"`
	ConfidenceScore         *float64 `json:"confidence_score"`
}

func (c *Client) CheckAmbiguity(ctx context.Context, query string, partial map[string][]models.EvidenceItem) (*models.AmbiguityVerdict, error) {
	req := map[string]string{
		"query":          query,
		"retrieved_data": FormatPartialEvidence(partial),
	}

	var resp ambiguityResponse
	if err := c.call(ctx, ambiguityPath, req, ambiguitySchema, &resp); err != nil {
		return nil, wrap(ctx, ErrAmbiguityCheckFailed, err)
	}

	confidence := 0.5
	if resp.ConfidenceScore != nil {
		confidence = *resp.ConfidenceScore
	}
	verdict := &models.AmbiguityVerdict{
		IsAmbiguous:     resp.IsAmbiguous,
		Interpretations: resp.PossibleInterpretations,
		Confidence:      confidence,
	}
	if resp.ClarificationMessage != nil && *resp.ClarificationMessage != "" {
		msg := *resp.ClarificationMessage
		verdict.ClarificationMessage = &msg
	}
	return verdict, nil
}

type evaluateResponse struct {
	MainPoints         []string `json:"main_points"`
	MissingInformation []string `json:"missing_information"`
	ConfidenceScore    float64  `json:"confidence_score"`
	Summary            *string  `json:"summary"`
}

func (c *Client) Evaluate(ctx context.Context, intent *models.Intent, query string, evidence []models.EvidenceItem) (*models.Verdict, error) {
	companies := "Not specified"
	queryType := models.QueryTypeGeneral
	if intent != nil {
		queryType = intent.QueryType
		if len(intent.Entities.Companies) > 0 {
			companies = strings.Join(intent.Entities.Companies, ", ")
		}
	}

	req := map[string]string{
		"query":      query,
		"query_type": queryType.String(),
		"companies":  companies,
		"data":       FormatEvidence(evidence),
	}

	var resp evaluateResponse
	if err := c.call(ctx, evaluatePath, req, evaluationSchema, &resp); err != nil {
		return nil, wrap(ctx, ErrEvaluationFailed, err)
	}

	summary := ""
	if resp.Summary != nil {
		summary = *resp.Summary
	}
	verdict := models.NewVerdict(resp.ConfidenceScore, resp.MissingInformation, resp.MainPoints, summary)

	c.logger.Info("evidence evaluated", map[string]interface{}{
		"confidence": verdict.Confidence,
		"isValid":    verdict.IsValid,
		"findings":   len(verdict.KeyFindings),
	})
	return verdict, nil
}

// wrap tags err with a stage sentinel while keeping context errors
// reachable through errors.Is.
func wrap(ctx context.Context, sentinel, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", sentinel, ctx.Err())
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
