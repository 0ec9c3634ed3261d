// internal/sampling/client.go
package sampling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"wellness-log/internal/config"
	"wellness-log/internal/metrics"
	"wellness-log/internal/models"
)

// Operation names, used as metric labels and log fields.
const (
	OpAnalyzeMeal     = "analyze_meal"
	OpReply           = "reply"
	OpJournalMetadata = "journal_metadata"
	OpPolishJournal   = "polish_journal"
)

const coachInstruction = "You are a compassionate, encouraging, and knowledgeable fat loss coach and emotional support companion. " +
	"Your goal is to help the user stay motivated, navigate emotional eating triggers, and maintain a healthy mindset. " +
	"Be empathetic but practical. Keep responses concise (under 3 paragraphs) unless asked for details."

// Client performs single request/response exchanges with the Gemini generateContent API.
// Each call is one attempt; the only timeout is the HTTP client's.
type Client struct {
	http         *resty.Client
	apiKey       string
	model        string
	historyLimit int
	metrics      *metrics.Metrics
	log          zerolog.Logger
}

func NewClient(cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.GeminiBaseURL), "/")
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultModel
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	if cfg.RequestTimeout > 0 {
		c.SetTimeout(cfg.RequestTimeout)
	}

	return &Client{
		http:         c,
		apiKey:       cfg.GeminiAPIKey,
		model:        model,
		historyLimit: cfg.ChatHistoryLimit,
		metrics:      m,
		log:          log.With().Str("component", "sampling").Logger(),
	}
}

// AnalyzeMeal estimates the nutrition of a free-text meal description.
// Missing or negative fields yield models.ErrMalformedResponse.
func (c *Client) AnalyzeMeal(ctx context.Context, description string) (analysis *models.MealAnalysis, err error) {
	defer c.observe(OpAnalyzeMeal, time.Now(), &err)

	temperature := 0.1
	req := &generateRequest{
		Contents: []content{userText(fmt.Sprintf(
			"Analyze the nutritional content of this meal description: %q. Provide a realistic estimate.", description))},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   mealSchema,
			Temperature:      &temperature,
		},
	}

	text, err := c.generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analyze meal: %w", err)
	}

	var out models.MealAnalysis
	if err := decodeJSON(text, &out); err != nil {
		return nil, fmt.Errorf("analyze meal: %w", err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("analyze meal: %w", err)
	}
	return &out, nil
}

// Reply continues the support conversation. history holds the messages before
// message; only the most recent historyLimit of them are sent. An empty reply
// is returned as "" without error.
func (c *Client) Reply(ctx context.Context, history []models.ChatMessage, message string) (reply string, err error) {
	defer c.observe(OpReply, time.Now(), &err)

	contents := make([]content, 0, len(history)+1)
	for _, m := range BoundHistory(history, c.historyLimit) {
		contents = append(contents, content{Role: string(m.Role), Parts: []part{{Text: m.Text}}})
	}
	contents = append(contents, userText(message))

	req := &generateRequest{
		Contents:          contents,
		SystemInstruction: &content{Parts: []part{{Text: coachInstruction}}},
	}

	text, err := c.generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("reply: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// JournalMetadata generates a title and up to five tags for a journal entry.
func (c *Client) JournalMetadata(ctx context.Context, entry string) (meta *models.JournalMetadata, err error) {
	defer c.observe(OpJournalMetadata, time.Now(), &err)

	req := &generateRequest{
		Contents: []content{userText(fmt.Sprintf(
			"Analyze this journal entry. Generate a concise title and relevant tags.\n\nEntry: %q", entry))},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   journalMetadataSchema,
		},
	}

	text, err := c.generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("journal metadata: %w", err)
	}

	var out models.JournalMetadata
	if err := decodeJSON(text, &out); err != nil {
		return nil, fmt.Errorf("journal metadata: %w", err)
	}
	out.Normalize()
	if out.Title == "" {
		return nil, fmt.Errorf("journal metadata: %w: missing title", models.ErrMalformedResponse)
	}
	return &out, nil
}

// PolishJournal rewrites a journal entry for clarity and flow.
func (c *Client) PolishJournal(ctx context.Context, entry string) (polished string, err error) {
	defer c.observe(OpPolishJournal, time.Now(), &err)

	req := &generateRequest{
		Contents: []content{userText(fmt.Sprintf(
			"Enhance the following text for clarity, flow, and emotional resonance. Return ONLY the polished text, no preamble.\n\nText: %q", entry))},
	}

	text, err := c.generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("polish journal: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("polish journal: %w: empty text", models.ErrMalformedResponse)
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, body *generateRequest) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", fmt.Errorf("%w: missing api key", models.ErrCapabilityUnavailable)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", c.apiKey).
		SetBody(body).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrCapabilityUnavailable, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: status %d: %s", models.ErrCapabilityUnavailable, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	var decoded generateResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", models.ErrMalformedResponse, err)
	}
	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: blocked: %s", models.ErrMalformedResponse, decoded.PromptFeedback.BlockReason)
	}
	return decoded.text(), nil
}

func (c *Client) observe(op string, start time.Time, errp *error) {
	outcome := metrics.OutcomeOK
	if err := *errp; err != nil {
		outcome = metrics.OutcomeError
		if errors.Is(err, models.ErrMalformedResponse) {
			outcome = metrics.OutcomeMalformed
		}
		c.log.Warn().Err(err).Str("operation", op).Msg("capability call failed")
	}
	c.metrics.ObserveCall(op, outcome, time.Since(start))
}

// decodeJSON extracts the outermost JSON object from text and decodes it into v.
func decodeJSON(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("%w: no JSON object in response", models.ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}
	return nil
}

// BoundHistory keeps the last limit messages and drops leading model turns so
// the history sent upstream starts with the user. limit <= 0 sends none.
func BoundHistory(history []models.ChatMessage, limit int) []models.ChatMessage {
	if limit <= 0 {
		return nil
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	for len(history) > 0 && history[0].Role != models.RoleUser {
		history = history[1:]
	}
	return history
}
