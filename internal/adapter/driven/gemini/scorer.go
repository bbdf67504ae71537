// Package gemini implements the Scorer port against the Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Scorer = (*Scorer)(nil)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// scorerHTTPClient is the HTTP client used for scoring requests.
// It enforces a 60-second timeout as a safety net alongside context cancellation.
var scorerHTTPClient = &http.Client{Timeout: 60 * time.Second}

const promptTemplate = `You are reviewing the feedback a pull request received from its code reviewers.

Pull request title: %s
Number of review comments: %d

Review comments:
%s

Rate the pull request on each dimension from 0 to 10 based on what the review
feedback reveals, classify each comment into exactly one category, and give a
one-sentence reason per dimension. Use 0 for ui_ux unless the comments discuss
visible interface changes.

Respond with only a JSON object in this exact shape:
{
  "scores": {
    "code_quality": 0,
    "logic_functionality": 0,
    "performance_security": 0,
    "testing_documentation": 0,
    "ui_ux": 0
  },
  "classification": {
    "code_quality": 0,
    "logic_functionality": 0,
    "performance_security": 0,
    "testing_documentation": 0,
    "repeated_comments": 0,
    "ignorable": 0
  },
  "reasoning": {
    "code_quality": "",
    "logic_functionality": "",
    "performance_security": "",
    "testing_documentation": "",
    "ui_ux": ""
  }
}`

// Scorer implements the driven.Scorer port against the Gemini
// generateContent endpoint.
type Scorer struct {
	baseURL string
	apiKey  string
	model   string
}

// NewScorer creates a Scorer for the production Gemini endpoint.
func NewScorer(apiKey, model string) *Scorer {
	return &Scorer{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

// NewScorerWithBaseURL creates a Scorer against a custom base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewScorerWithBaseURL(baseURL, apiKey, model string) *Scorer {
	return &Scorer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

// generateRequest is the JSON body sent to the generateContent endpoint.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// generateResponse represents the expected shape of a generateContent response.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// analysisJSON is the JSON shape the model is prompted to produce.
type analysisJSON struct {
	Scores struct {
		CodeQuality          int `json:"code_quality"`
		LogicFunctionality   int `json:"logic_functionality"`
		PerformanceSecurity  int `json:"performance_security"`
		TestingDocumentation int `json:"testing_documentation"`
		UIUX                 int `json:"ui_ux"`
	} `json:"scores"`
	Classification struct {
		CodeQuality          int `json:"code_quality"`
		LogicFunctionality   int `json:"logic_functionality"`
		PerformanceSecurity  int `json:"performance_security"`
		TestingDocumentation int `json:"testing_documentation"`
		RepeatedComments     int `json:"repeated_comments"`
		Ignorable            int `json:"ignorable"`
	} `json:"classification"`
	Reasoning map[string]string `json:"reasoning"`
}

// Score asks the oracle to assess one pull request's review feedback.
// Transport failures and non-200 responses surface as errors. Unparseable
// model output does not: it logs a warning and returns the zero analysis,
// because a single bad completion must not fail the caller's request.
func (s *Scorer) Score(ctx context.Context, sc driven.ScoreContext) (model.ReviewAnalysis, error) {
	prompt := fmt.Sprintf(promptTemplate, sc.Title, sc.CommentCount, sc.CommentsText)

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return model.ReviewAnalysis{}, fmt.Errorf("marshaling scoring request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return model.ReviewAnalysis{}, fmt.Errorf("creating scoring request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := scorerHTTPClient.Do(httpReq)
	if err != nil {
		return model.ReviewAnalysis{}, fmt.Errorf("scoring request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return model.ReviewAnalysis{}, fmt.Errorf("scoring request: HTTP %d", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return model.ReviewAnalysis{}, fmt.Errorf("decoding scoring response: %w", err)
	}

	if genResp.Error != nil {
		return model.ReviewAnalysis{}, fmt.Errorf("scoring response: %s", genResp.Error.Message)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		slog.Warn("scoring oracle returned no candidates", "title", sc.Title)
		return model.ReviewAnalysis{}, nil
	}

	text := stripFences(genResp.Candidates[0].Content.Parts[0].Text)

	var parsed analysisJSON
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		slog.Warn("scoring oracle returned unparseable output",
			"title", sc.Title,
			"error", err,
		)
		return model.ReviewAnalysis{}, nil
	}

	analysis := model.ReviewAnalysis{
		Scores: model.QualityScores{
			CodeQuality:          parsed.Scores.CodeQuality,
			LogicFunctionality:   parsed.Scores.LogicFunctionality,
			PerformanceSecurity:  parsed.Scores.PerformanceSecurity,
			TestingDocumentation: parsed.Scores.TestingDocumentation,
			UIUX:                 parsed.Scores.UIUX,
		},
		Classification: model.CommentClassification{
			CodeQuality:          parsed.Classification.CodeQuality,
			LogicFunctionality:   parsed.Classification.LogicFunctionality,
			PerformanceSecurity:  parsed.Classification.PerformanceSecurity,
			TestingDocumentation: parsed.Classification.TestingDocumentation,
			RepeatedComments:     parsed.Classification.RepeatedComments,
			Ignorable:            parsed.Classification.Ignorable,
		},
		Reasoning: parsed.Reasoning,
	}
	analysis.Scores = analysis.Scores.Clamp()

	return analysis, nil
}

// stripFences removes a wrapping markdown code fence from model output.
// Gemini frequently wraps JSON in ```json fences despite instructions.
func stripFences(text string) string {
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	return strings.TrimSpace(text)
}
