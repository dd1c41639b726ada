package unit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astrowise/astrowise-api/internal/domain/astro"
	"github.com/astrowise/astrowise-api/internal/domain/fortune"
	"github.com/astrowise/astrowise-api/internal/domain/member"
	"github.com/astrowise/astrowise-api/internal/infra/chartcache"
	"github.com/astrowise/astrowise-api/internal/infra/llm/chatgpt"
	"github.com/astrowise/astrowise-api/internal/infra/memberrepo"
	"github.com/astrowise/astrowise-api/internal/infra/usagelog"
	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

// The purchase-to-prediction flow wired with the real member service, the
// real chart pipeline and the in-memory stores, only the LLM stubbed out.
func TestFortuneFlowEndToEnd(t *testing.T) {
	logger := newTestLogger()
	repo := memberrepo.NewMemoryRepository()
	members := member.NewService(repo, logger)
	charts := astro.NewService(astro.Config{CacheTTL: time.Hour}, chartcache.NewMemoryStore(), logger)
	usage := usagelog.NewMemoryRecorder()
	chat := &stubChatClient{answer: "งานจะราบรื่น"}

	svc := fortune.NewService(fortune.Config{
		Model:        "gpt-4o-mini",
		SystemPrompt: "you are an astrologer",
		WarnBelow:    3,
	}, members, charts, chat, staticKnowledge("reference text"), usage, logger)

	// A payment webhook with no member attached issues fresh credentials.
	creds, err := members.Fulfill(context.Background(), member.Fulfillment{
		Package:         "lite",
		Quota:           2,
		ValidFor:        time.Hour,
		PaymentIntentID: "pi_flow",
	})
	require.NoError(t, err)
	require.NotEmpty(t, creds.Token)

	lat, lng := 13.7563, 100.5018
	req := fortune.Request{
		UserID:   creds.UserID,
		Token:    creds.Token,
		Question: "การงานปีนี้เป็นอย่างไร",
		Birth:    &astro.BirthDescriptor{Date: "1990-04-19", Time: "11:30:00", Lat: &lat, Lng: &lng, Zone: "Asia/Bangkok"},
	}

	resp, err := svc.Ask(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, 1, resp.Remaining)
	require.NotNil(t, resp.AstroData)
	require.Equal(t, "ok", resp.AstroData.Status)
	require.Len(t, resp.AstroData.Planets, 9)
	require.NotEmpty(t, resp.Warning)
	require.Len(t, usage.Entries(), 1)

	// Second question burns the last unit; the third is refused before the
	// model is called.
	resp, err = svc.Ask(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 0, resp.Remaining)

	calls := chat.calls
	_, err = svc.Ask(context.Background(), req)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNoQuota))
	require.Equal(t, calls, chat.calls)
}

type stubChatClient struct {
	answer string
	calls  int
}

func (c *stubChatClient) CreateChatCompletion(_ context.Context, _ chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	c.calls++
	return chatgpt.ChatCompletionResponse{
		Choices: []chatgpt.Choice{{Message: chatgpt.Message{Role: "assistant", Content: c.answer}}},
	}, nil
}

type staticKnowledge string

func (k staticKnowledge) Text(context.Context) (string, error) { return string(k), nil }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
