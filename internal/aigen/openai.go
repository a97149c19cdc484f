package aigen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/akarpov87/ideaforge/internal/server/models"
	"github.com/sethvargo/go-retry"
)

// OpenAIGenerator calls an OpenAI-compatible chat-completions endpoint.
// Transient failures (network errors, 429, 5xx) are retried with exponential
// backoff; anything else fails immediately.
type OpenAIGenerator struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	maxRetries  uint64
	baseBackoff time.Duration
}

// NewOpenAIGenerator constructs a generator for the given endpoint and model.
func NewOpenAIGenerator(baseURL, apiKey, model string, timeout time.Duration) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:      &http.Client{Timeout: timeout},
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		maxRetries:  3,
		baseBackoff: time.Second,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *OpenAIGenerator) GenerateDocument(ctx context.Context, docType models.DocumentType, genCtx GenerationContext) (models.Content, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(docType)},
			{Role: "user", Content: userPrompt(genCtx)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var reply string
	backoff := retry.WithMaxRetries(g.maxRetries, retry.NewExponential(g.baseBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		text, err := g.complete(ctx, body)
		if err != nil {
			return err
		}
		reply = text
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}

	return parseReply(docType, reply)
}

func (g *OpenAIGenerator) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", retry.RetryableError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", retry.RetryableError(err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", retry.RetryableError(fmt.Errorf("provider returned %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider returned %d: %s", resp.StatusCode, data)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("provider returned no content")
	}
	return parsed.Choices[0].Message.Content, nil
}

// parseReply shapes the raw completion into document content. Generated
// documents carry the reply as markdown; analysis types must come back as a
// JSON object matching the analysis content shape.
func parseReply(docType models.DocumentType, reply string) (models.Content, error) {
	if !docType.IsAnalysis() {
		return models.Content{"markdown": reply}, nil
	}

	payload := models.DecodeContent([]byte(stripCodeFence(reply)))
	if payload == nil {
		return nil, fmt.Errorf("analysis reply is not a JSON object")
	}
	return payload, nil
}

// stripCodeFence removes a surrounding ```json ... ``` fence if present.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func systemPrompt(docType models.DocumentType) string {
	switch docType {
	case models.DocTypePRD:
		return "You are a product manager. Write a complete product requirements document in markdown."
	case models.DocTypeTechnicalDesign:
		return "You are a senior engineer. Write a technical design document in markdown."
	case models.DocTypeArchitecture:
		return "You are a software architect. Write an architecture overview in markdown."
	case models.DocTypeRoadmap:
		return "You are a product manager. Write a delivery roadmap in markdown."
	case models.DocTypeStartupAnalysis, models.DocTypeHackathonAnalysis:
		return `You are an analyst. Reply with a JSON object: {"score": <0-10>, "feedback": "<one paragraph>"}.`
	default:
		return "Write a document in markdown."
	}
}

func userPrompt(genCtx GenerationContext) string {
	var b strings.Builder
	b.WriteString("Idea:\n")
	b.WriteString(genCtx.IdeaText)
	if genCtx.AnalysisScore != nil {
		fmt.Fprintf(&b, "\n\nPrior analysis score: %.1f", *genCtx.AnalysisScore)
	}
	if genCtx.AnalysisFeedback != "" {
		b.WriteString("\nPrior analysis feedback:\n")
		b.WriteString(genCtx.AnalysisFeedback)
	}
	for _, section := range []struct{ name, text string }{
		{"Existing PRD", genCtx.ExistingPRD},
		{"Existing technical design", genCtx.ExistingTechnicalDesign},
		{"Existing architecture", genCtx.ExistingArchitecture},
	} {
		if section.text != "" {
			b.WriteString("\n\n")
			b.WriteString(section.name)
			b.WriteString(":\n")
			b.WriteString(section.text)
		}
	}
	return b.String()
}
