// Package advisory provides structured AI analysis with a deterministic
// heuristic fallback, so advisory endpoints answer even without a model key.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// geminiClient calls the Gemini generateContent REST endpoint and extracts
// a JSON object from the model output.
type geminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func newGeminiClient(apiKey, model, baseURL string, timeout time.Duration, log zerolog.Logger) *geminiClient {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if timeout < 5*time.Second {
		timeout = 5 * time.Second
	}
	return &geminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "gemini").Logger(),
	}
}

func (g *geminiClient) enabled() bool {
	key := strings.TrimSpace(g.apiKey)
	return key != "" && key != "your_gemini_key_here"
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generateJSON sends a prompt and returns the parsed JSON object from the
// first candidate.
func (g *geminiClient) generateJSON(ctx context.Context, prompt string) (map[string]interface{}, error) {
	if !g.enabled() {
		return nil, errors.New("gemini API key not configured")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      0.2,
			"maxOutputTokens":  900,
			"responseMimeType": "application/json",
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, fmt.Errorf("gemini HTTP %d: %s", resp.StatusCode, msg)
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}

	return parseJSONText(result.Candidates[0].Content.Parts[0].Text)
}

// parseJSONText extracts a JSON object from model output, tolerating
// surrounding prose or markdown fences.
func parseJSONText(text string) (map[string]interface{}, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty model output")
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return parsed, nil
	}

	match := jsonObjectRe.FindString(text)
	if match == "" {
		return nil, errors.New("no JSON object in model output")
	}
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil, fmt.Errorf("malformed JSON in model output: %w", err)
	}
	return parsed, nil
}
