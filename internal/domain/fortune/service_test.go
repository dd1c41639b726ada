package fortune

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrowise/astrowise-api/internal/domain/astro"
	"github.com/astrowise/astrowise-api/internal/domain/member"
	"github.com/astrowise/astrowise-api/internal/infra/llm/chatgpt"
	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

type fakeMembers struct {
	member.Service
	authorizeErr error
	authorized   member.Member
	remaining    int
	used         int
	spendCalls   int
}

func (m *fakeMembers) Authorize(context.Context, string, string) (member.Member, error) {
	if m.authorizeErr != nil {
		return member.Member{}, m.authorizeErr
	}
	return m.authorized, nil
}

func (m *fakeMembers) SpendQuota(context.Context, string) (int, int, error) {
	m.spendCalls++
	return m.remaining, m.used, nil
}

type fakeCharts struct {
	calls  int
	result astro.ChartResult
}

func (c *fakeCharts) CalcChart(context.Context, astro.BirthDescriptor) astro.ChartResult {
	c.calls++
	return c.result
}

type fakeChat struct {
	lastReq chatgpt.ChatCompletionRequest
	answer  string
	err     error
}

func (c *fakeChat) CreateChatCompletion(_ context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	c.lastReq = req
	if c.err != nil {
		return chatgpt.ChatCompletionResponse{}, c.err
	}
	return chatgpt.ChatCompletionResponse{
		Choices: []chatgpt.Choice{{Message: chatgpt.Message{Role: "assistant", Content: c.answer}}},
		Usage:   chatgpt.Usage{PromptTokens: 120, CompletionTokens: 40, TotalTokens: 160},
	}, nil
}

type staticKnowledge string

func (k staticKnowledge) Text(context.Context) (string, error) { return string(k), nil }

type fakeUsage struct {
	entries []UsageEntry
}

func (u *fakeUsage) Record(_ context.Context, entry UsageEntry) error {
	u.entries = append(u.entries, entry)
	return nil
}

func testFortuneConfig() Config {
	return Config{
		Model:        "gpt-4o-mini",
		Temperature:  0.7,
		SystemPrompt: "you are an astrologer",
		WarnBelow:    3,
	}
}

func newFortuneService(members *fakeMembers, charts *fakeCharts, chat *fakeChat, usage *fakeUsage) Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(testFortuneConfig(), members, charts, chat, staticKnowledge("the moon governs moods"), usage, logger)
}

func TestAskRequiresCredentialsAndQuestion(t *testing.T) {
	svc := newFortuneService(&fakeMembers{}, &fakeCharts{}, &fakeChat{}, &fakeUsage{})

	cases := []Request{
		{},
		{UserID: "123456", Token: "abc123"},
		{UserID: "123456", Question: "q"},
		{Token: "abc123", Question: "q"},
		{UserID: " ", Token: "abc123", Question: "q"},
	}
	for i, req := range cases {
		_, err := svc.Ask(context.Background(), req)
		require.Error(t, err, "case %d", i)
		require.True(t, apperrors.IsCode(err, apperrors.CodeMissingFields), "case %d: %v", i, err)
	}
}

func TestAskPropagatesAuthorizationFailure(t *testing.T) {
	members := &fakeMembers{authorizeErr: apperrors.Wrap(apperrors.CodeNoQuota, "quota exhausted", nil)}
	chat := &fakeChat{answer: "unused"}
	svc := newFortuneService(members, &fakeCharts{}, chat, &fakeUsage{})

	_, err := svc.Ask(context.Background(), Request{UserID: "123456", Token: "abc123", Question: "will it rain"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeNoQuota))
	require.Zero(t, members.spendCalls)
}

func TestAskAnswersAndSpendsQuota(t *testing.T) {
	members := &fakeMembers{authorized: member.Member{UserID: "123456", Package: "standard", Quota: 10}, remaining: 9, used: 1}
	chat := &fakeChat{answer: "  โชคดีมาก  "}
	usage := &fakeUsage{}
	svc := newFortuneService(members, &fakeCharts{}, chat, usage)

	resp, err := svc.Ask(context.Background(), Request{UserID: "123456", Token: "abc123", Question: "how is my luck"})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "โชคดีมาก", resp.Prediction)
	require.Equal(t, resp.Prediction, resp.Answer)
	require.Equal(t, 9, resp.Remaining)
	require.Equal(t, 1, resp.Used)
	require.Nil(t, resp.AstroData)
	require.Empty(t, resp.Warning)
	require.Equal(t, 160, resp.Usage.TotalTokens)

	require.Equal(t, 1, members.spendCalls)
	require.Len(t, usage.entries, 1)
	require.Equal(t, "123456", usage.entries[0].UserID)
	require.Equal(t, "standard", usage.entries[0].Package)

	// The knowledge core and the question both reach the model.
	require.Len(t, chat.lastReq.Messages, 2)
	require.Contains(t, chat.lastReq.Messages[1].Content, "the moon governs moods")
	require.Contains(t, chat.lastReq.Messages[1].Content, "how is my luck")
}

func TestAskEnrichesWithChartWhenBirthComplete(t *testing.T) {
	members := &fakeMembers{authorized: member.Member{Package: "lite", Quota: 5}, remaining: 4, used: 1}
	charts := &fakeCharts{result: astro.ChartResult{
		Status:    "ok",
		Planets:   map[astro.Body]float64{astro.Sun: 28.9123},
		Ascendant: 123.4,
	}}
	chat := &fakeChat{answer: "answer"}
	svc := newFortuneService(members, charts, chat, &fakeUsage{})

	lat, lng := 13.7563, 100.5018
	req := Request{
		UserID:   "123456",
		Token:    "abc123",
		Question: "career",
		Birth:    &astro.BirthDescriptor{Date: "1990-04-19", Time: "11:30", Lat: &lat, Lng: &lng, Zone: "Asia/Bangkok"},
	}
	resp, err := svc.Ask(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, charts.calls)
	require.NotNil(t, resp.AstroData)
	require.Contains(t, chat.lastReq.Messages[1].Content, "SUN=28.9123")
}

func TestAskSkipsChartWhenBirthIncomplete(t *testing.T) {
	members := &fakeMembers{authorized: member.Member{Package: "lite", Quota: 5}, remaining: 4, used: 1}
	charts := &fakeCharts{}
	svc := newFortuneService(members, charts, &fakeChat{answer: "answer"}, &fakeUsage{})

	req := Request{
		UserID:   "123456",
		Token:    "abc123",
		Question: "career",
		Birth:    &astro.BirthDescriptor{Date: "1990-04-19"},
	}
	resp, err := svc.Ask(context.Background(), req)
	require.NoError(t, err)
	require.Zero(t, charts.calls)
	require.Nil(t, resp.AstroData)
}

func TestAskWarnsWhenQuotaRunsLow(t *testing.T) {
	members := &fakeMembers{authorized: member.Member{Package: "lite", Quota: 3}, remaining: 2, used: 3}
	svc := newFortuneService(members, &fakeCharts{}, &fakeChat{answer: "answer"}, &fakeUsage{})

	resp, err := svc.Ask(context.Background(), Request{UserID: "123456", Token: "abc123", Question: "q"})
	require.NoError(t, err)
	require.Contains(t, resp.Warning, "2")
}

func TestAskDoesNotSpendQuotaOnLLMFailure(t *testing.T) {
	members := &fakeMembers{authorized: member.Member{Package: "lite", Quota: 5}}
	chat := &fakeChat{err: io.ErrUnexpectedEOF}
	svc := newFortuneService(members, &fakeCharts{}, chat, &fakeUsage{})

	_, err := svc.Ask(context.Background(), Request{UserID: "123456", Token: "abc123", Question: "q"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeLLMError))
	require.Zero(t, members.spendCalls)
}

func TestAskQuestionIsQuoted(t *testing.T) {
	members := &fakeMembers{authorized: member.Member{Package: "lite", Quota: 5}, remaining: 4, used: 1}
	chat := &fakeChat{answer: "answer"}
	svc := newFortuneService(members, &fakeCharts{}, chat, &fakeUsage{})

	_, err := svc.Ask(context.Background(), Request{UserID: "123456", Token: "abc123", Question: `what about "tomorrow"`})
	require.NoError(t, err)
	require.True(t, strings.Contains(chat.lastReq.Messages[1].Content, "Question:"))
}
