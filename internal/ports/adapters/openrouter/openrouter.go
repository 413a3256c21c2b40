package openrouter

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

	"github.com/forPelevin/reelcut/internal/ports"
)

const (
	DefaultModel   = "anthropic/claude-3.5-sonnet"
	requestTimeout = 90 * time.Second
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

var _ ports.Narrator = (*Adapter)(nil)

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = DefaultModel
	}
	return &Adapter{key: apiKey, model: model, baseURL: normalizeBaseURL(baseURL), client: &http.Client{Timeout: 5 * time.Minute}}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (a *Adapter) WithHTTPClient(c *http.Client) *Adapter {
	a.client = c
	return a
}

// Narrate asks the model to retell the chunk as scene narration. Only lines
// that start with a timestamp are kept, so the result stays valid trim
// input.
func (a *Adapter) Narrate(ctx context.Context, chunk []string, language string) ([]string, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	if strings.TrimSpace(language) == "" {
		language = "English"
	}
	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]any{
			{"role": "user", "content": buildPrompt(chunk, language)},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name": "reelcut_narration",
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"lines": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required": []string{"lines"},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.baseURL+"/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if readErr != nil {
			return nil, fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode openrouter response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return nil, errors.New("openrouter: no choices in response")
	}
	content, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	lines := parseLines(content)
	if len(lines) == 0 {
		return nil, fmt.Errorf("openrouter: no timestamped lines in: %q", truncate(content, 200))
	}
	return lines, nil
}

func buildPrompt(chunk []string, language string) string {
	return "You are a professional movie narrator.\n" +
		"Here is a raw timestamped transcript of a part of a movie:\n\n" +
		strings.Join(chunk, "\n") +
		"\n\nTask:\n" +
		"- Summarize only the main scenes and important dialogues.\n" +
		"- Keep the timestamps exactly as in the raw transcript.\n" +
		"- Paraphrase dialogues into a storytelling style.\n" +
		"- Write the narration in " + language + ".\n" +
		"- Every line must look like: 00:00:05,000 - [narration about this scene]\n" +
		`Return strictly valid JSON (no markdown, no code fences): {"lines": ["..."]}`
}

var reTimestamped = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}`)

// parseLines accepts the schema object or, failing that, plain text.
func parseLines(content string) []string {
	var candidates []string
	if obj, err := extractJSONObject(content); err == nil {
		var out struct {
			Lines []string `json:"lines"`
		}
		if json.Unmarshal([]byte(obj), &out) == nil {
			candidates = out.Lines
		}
	}
	if candidates == nil {
		candidates = strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	}
	var lines []string
	for _, l := range candidates {
		l = strings.TrimSpace(l)
		if reTimestamped.MatchString(l) {
			lines = append(lines, l)
		}
	}
	return lines
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("openrouter: empty content")
	}
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("openrouter: could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
