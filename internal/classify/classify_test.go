package classify

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triangle-intelligence/compliance-cli/pkg/anthropic"
)

// fakeClient returns a canned response and records the request.
type fakeClient struct {
	resp *anthropic.MessageResponse
	err  error
	last anthropic.MessageRequest
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.last = req
	return f.resp, f.err
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func TestSuggest_ParsesCandidates(t *testing.T) {
	fake := &fakeClient{resp: textResponse(`[
  {"hs_code": "8544.42.00", "confidence": 0.9, "rationale": "insulated cable with connectors"},
  {"hs_code": "8544.49.00", "confidence": 0.4, "rationale": "if shipped without connectors"}
]`)}
	c := New(fake, "claude-haiku-4-5-20251001")

	got, err := c.Suggest(context.Background(), "insulated copper wiring harness with fitted connectors")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "85444200", got[0].HSCode)
	assert.Equal(t, 0.9, got[0].Confidence)
	assert.Equal(t, "85444900", got[1].HSCode)

	assert.Equal(t, "claude-haiku-4-5-20251001", fake.last.Model)
	require.Len(t, fake.last.Messages, 1)
	assert.Contains(t, fake.last.Messages[0].Content, "wiring harness")
}

func TestSuggest_ToleratesCodeFences(t *testing.T) {
	fake := &fakeClient{resp: textResponse("```json\n[{\"hs_code\": \"7326.90.70\", \"confidence\": 0.8}]\n```")}
	c := New(fake, "claude-haiku-4-5-20251001")

	got, err := c.Suggest(context.Background(), "steel mounting bracket")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "73269070", got[0].HSCode)
}

func TestSuggest_DropsUnusableCodes(t *testing.T) {
	fake := &fakeClient{resp: textResponse(`[
  {"hs_code": "not a code", "confidence": 0.9},
  {"hs_code": "85444200", "confidence": 0.5}
]`)}
	c := New(fake, "claude-haiku-4-5-20251001")

	got, err := c.Suggest(context.Background(), "cable")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "85444200", got[0].HSCode)
}

func TestSuggest_NoUsableCandidates(t *testing.T) {
	fake := &fakeClient{resp: textResponse(`[{"hs_code": "??", "confidence": 0.9}]`)}
	c := New(fake, "claude-haiku-4-5-20251001")

	_, err := c.Suggest(context.Background(), "mystery object")
	require.Error(t, err)
}

func TestSuggest_NoJSONInResponse(t *testing.T) {
	fake := &fakeClient{resp: textResponse("I cannot classify this product.")}
	c := New(fake, "claude-haiku-4-5-20251001")

	_, err := c.Suggest(context.Background(), "cable")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON array")
}

func TestSuggest_EmptyDescription(t *testing.T) {
	c := New(&fakeClient{}, "claude-haiku-4-5-20251001")
	_, err := c.Suggest(context.Background(), "   ")
	require.Error(t, err)
}

func TestSuggest_APIErrorWrapped(t *testing.T) {
	fake := &fakeClient{err: eris.New("overloaded")}
	c := New(fake, "claude-haiku-4-5-20251001")

	_, err := c.Suggest(context.Background(), "cable")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create message")
}
