// Package classify suggests HS codes for free-text product descriptions
// using Claude. Suggestions are starting points for a licensed broker, not
// filings.
package classify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
	"github.com/triangle-intelligence/compliance-cli/pkg/anthropic"
)

const systemPrompt = `You are a customs classification assistant. Given a product
description, suggest up to 3 candidate HS codes at 8-digit (HTS) precision.
Respond with ONLY a JSON array, no prose:
[{"hs_code": "8544.42.00", "confidence": 0.9, "rationale": "..."}]
confidence is your 0-1 estimate that the code is correct. Order candidates
by confidence, highest first.`

// Suggestion is one candidate classification.
type Suggestion struct {
	HSCode     string  `json:"hs_code"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale,omitempty"`
}

// Classifier turns product descriptions into HS code candidates.
type Classifier struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates a Classifier using the given model.
func New(client anthropic.Client, modelID string) *Classifier {
	return &Classifier{client: client, model: modelID, maxTokens: 1024}
}

// Suggest asks for candidate codes and validates each one through the
// normalizer. Candidates with unusable codes are dropped rather than
// surfaced.
func (c *Classifier) Suggest(ctx context.Context, description string) ([]Suggestion, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, eris.New("classify: empty product description")
	}

	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    []anthropic.SystemBlock{{Text: systemPrompt}},
		Messages:  []anthropic.Message{{Role: "user", Content: description}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "classify: create message")
	}
	resp.Usage.LogCost(c.model, "classify")

	suggestions, err := parseSuggestions(resp.Text())
	if err != nil {
		return nil, err
	}

	out := suggestions[:0]
	for _, s := range suggestions {
		code, err := model.NormalizeHS(s.HSCode)
		if err != nil {
			continue
		}
		s.HSCode = code
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, eris.New("classify: no usable candidates in response")
	}
	return out, nil
}

// parseSuggestions extracts the JSON array from the response text,
// tolerating markdown code fences the model sometimes adds despite the
// prompt.
func parseSuggestions(text string) ([]Suggestion, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, eris.Errorf("classify: no JSON array in response: %.80s", text)
	}

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &suggestions); err != nil {
		return nil, eris.Wrap(err, "classify: parse response")
	}
	return suggestions, nil
}
