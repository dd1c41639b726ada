package fortune

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/astrowise/astrowise-api/internal/domain/astro"
	"github.com/astrowise/astrowise-api/internal/domain/member"
	"github.com/astrowise/astrowise-api/internal/infra/llm/chatgpt"
	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
	"github.com/astrowise/astrowise-api/pkg/metrics"
)

// Service answers fortune questions for paying members.
type Service interface {
	Ask(ctx context.Context, req Request) (Response, error)
}

// ChatClient is the LLM dependency.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// KnowledgeSource supplies the astrology knowledge core text.
type KnowledgeSource interface {
	Text(ctx context.Context) (string, error)
}

// UsageEntry is one spent quota unit.
type UsageEntry struct {
	ID        string
	Timestamp time.Time
	UserID    string
	Question  string
	Remaining int
	Package   string
}

// UsageRecorder appends usage entries; failures must not block the answer.
type UsageRecorder interface {
	Record(ctx context.Context, entry UsageEntry) error
}

type service struct {
	cfg       Config
	members   member.Service
	charts    astro.Service
	client    ChatClient
	knowledge KnowledgeSource
	usage     UsageRecorder
	logger    *slog.Logger
}

// NewService is a wire provider for the fortune domain.
func NewService(cfg Config, members member.Service, charts astro.Service, client ChatClient, knowledge KnowledgeSource, usage UsageRecorder, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg,
		members:   members,
		charts:    charts,
		client:    client,
		knowledge: knowledge,
		usage:     usage,
		logger:    logger.With("component", "fortune.service"),
	}
}

func (s *service) Ask(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.Question) == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeMissingFields, "user_id, token and question are required", nil)
	}

	m, err := s.members.Authorize(ctx, req.UserID, req.Token)
	if err != nil {
		return Response{}, err
	}

	var chart *astro.ChartResult
	if req.Birth != nil && req.Birth.Complete() {
		result := s.charts.CalcChart(ctx, *req.Birth)
		chart = &result
		if result.Status != "ok" {
			s.logger.Warn("chart enrichment failed", "userID", req.UserID, "message", result.Message)
		}
	}

	prediction, usage, err := s.predict(ctx, req.Question, chart)
	if err != nil {
		return Response{}, err
	}

	remaining, used, err := s.members.SpendQuota(ctx, req.UserID)
	if err != nil {
		return Response{}, err
	}

	entry := UsageEntry{
		Timestamp: time.Now().UTC(),
		UserID:    req.UserID,
		Question:  req.Question,
		Remaining: remaining,
		Package:   m.Package,
	}
	if err := s.usage.Record(ctx, entry); err != nil {
		s.logger.Warn("usage log append failed", "userID", req.UserID, "error", err)
	}

	resp := Response{
		Success:    true,
		Remaining:  remaining,
		Used:       used,
		Prediction: prediction,
		Answer:     prediction,
		AstroData:  chart,
		Usage:      usage,
	}
	if remaining < s.cfg.WarnBelow {
		resp.Warning = fmt.Sprintf("only %d uses remaining", remaining)
	}
	return resp, nil
}

func (s *service) predict(ctx context.Context, question string, chart *astro.ChartResult) (string, metrics.TokenUsage, error) {
	core, err := s.knowledge.Text(ctx)
	if err != nil {
		return "", metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeLLMError, "knowledge core unavailable", err)
	}
	core, promptTokens := s.clampContext(core)

	var sb strings.Builder
	sb.WriteString("Use the following astrology knowledge core as your primary reference:\n---\n")
	sb.WriteString(core)
	sb.WriteString("\n---\n")
	if chart != nil && chart.Status == "ok" {
		sb.WriteString("Natal chart for this question (ecliptic longitudes in degrees):\n")
		sb.WriteString(describeChart(chart))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Question: %q\n\nAnswer in Thai, clearly and concisely, with a short practical suggestion when appropriate.", question))

	resp, err := s.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		Messages: []chatgpt.Message{
			{Role: "system", Content: s.cfg.SystemPrompt},
			{Role: "user", Content: sb.String()},
		},
	})
	if err != nil {
		return "", metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeLLMError, "fortune generation failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeLLMError, "llm returned no choices", nil)
	}

	usage := metrics.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if usage.IsZero() {
		usage.PromptTokens = promptTokens
		usage.TotalTokens = promptTokens
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), usage, nil
}

// clampContext trims the knowledge core to the configured token budget so a
// growing core file cannot blow up the prompt. Counted with the model's
// tokenizer, not bytes.
func (s *service) clampContext(core string) (string, int) {
	if s.cfg.ContextTokenBudget <= 0 {
		return core, 0
	}
	enc, err := tiktoken.EncodingForModel(s.cfg.Model)
	if err != nil {
		s.logger.Warn("tokenizer unavailable, sending core untrimmed", "model", s.cfg.Model, "error", err)
		return core, 0
	}
	tokens := enc.Encode(core, nil, nil)
	if len(tokens) <= s.cfg.ContextTokenBudget {
		return core, len(tokens)
	}
	return enc.Decode(tokens[:s.cfg.ContextTokenBudget]), s.cfg.ContextTokenBudget
}

func describeChart(chart *astro.ChartResult) string {
	bodies := make([]string, 0, len(chart.Planets))
	for body := range chart.Planets {
		bodies = append(bodies, string(body))
	}
	sort.Strings(bodies)

	var sb strings.Builder
	for _, body := range bodies {
		fmt.Fprintf(&sb, "%s=%.4f ", body, chart.Planets[astro.Body(body)])
	}
	fmt.Fprintf(&sb, "ASC=%.4f (UTC %s, JD %.6f)", chart.Ascendant, chart.UTC, chart.JulianDay)
	return sb.String()
}
