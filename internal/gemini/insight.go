package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mkeppel/habitquest-tui/internal/engine"
)

// FallbackInsight is what the UI shows when insight generation fails for any
// reason. The failure itself never blocks other functionality.
const FallbackInsight = "Unable to generate insight at this time."

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// GenerateMotivation sends the habit summary through the fixed instruction
// template and returns the model's text. Empty output is an error; the caller
// substitutes FallbackInsight.
func (c *Client) GenerateMotivation(ctx context.Context, summary string) (string, error) {
	prompt := fmt.Sprintf("Based on this habit tracking summary: %s, give me a brief, punchy motivational insight and one specific tip to improve. Keep it under 100 words.", summary)
	reqBody := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.Wrap(err, "encode request")
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, insightModel, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "generateContent")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var out generateContentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	if out.Error != nil {
		return "", fmt.Errorf("generateContent: %s", out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generateContent: status %d", resp.StatusCode)
	}
	text := firstCandidateText(out)
	if text == "" {
		return "", fmt.Errorf("empty response")
	}
	c.log.Info("insight generated", zap.Int("chars", len(text)))
	return text, nil
}

func firstCandidateText(resp generateContentResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

// SummaryLine formats analytics into the "Name: actual/goal" list embedded in
// the prompt.
func SummaryLine(summaries []engine.AnalyticSummary) string {
	parts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		parts = append(parts, fmt.Sprintf("%s: %d/%d", s.Name, s.Actual, s.Goal))
	}
	return strings.Join(parts, ", ")
}
