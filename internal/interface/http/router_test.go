package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrowise/astrowise-api/internal/domain/astro"
	"github.com/astrowise/astrowise-api/internal/domain/billing"
	"github.com/astrowise/astrowise-api/internal/domain/fortune"
	"github.com/astrowise/astrowise-api/internal/domain/member"
	"github.com/astrowise/astrowise-api/internal/infra/config"
	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

func TestRouter_CalcChartSuccess(t *testing.T) {
	charts := &stubCharts{result: astro.ChartResult{
		Status:    "ok",
		UTC:       "1990-04-19T04:30:00Z",
		JulianDay: 2448000.6875,
		Planets:   map[astro.Body]float64{astro.Sun: 28.9},
		Ascendant: 123.4,
		Houses:    []float64{123.4, 150, 180, 210, 240, 270, 303.4, 330, 0, 30, 60, 90},
	}}
	server := newServerUnderTest(t, charts, &stubMembers{}, &stubFortune{}, &stubBilling{})

	recorder := performRequest(server, http.MethodPost, "/api/v1/charts",
		`{"date":"1990-04-19","time":"11:30:00","lat":13.7563,"lng":100.5018,"zone":"Asia/Bangkok"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got astro.ChartResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "ok", got.Status)
	require.Len(t, got.Houses, 12)
}

func TestRouter_CalcChartKeepsStatusEnvelopeOnError(t *testing.T) {
	charts := &stubCharts{result: astro.ChartResult{Status: "error", Message: "missing or invalid fields: lat, lng"}}
	server := newServerUnderTest(t, charts, &stubMembers{}, &stubFortune{}, &stubBilling{})

	recorder := performRequest(server, http.MethodPost, "/api/v1/charts", `{"date":"1990-04-19"}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "error", got["status"])
	require.Contains(t, got["message"], "missing")
	require.NotContains(t, got, "error", "chart failures must not use the shared error envelope")
}

func TestRouter_WeekdayGet(t *testing.T) {
	server := newServerUnderTest(t, &stubCharts{}, &stubMembers{}, &stubFortune{}, &stubBilling{})

	recorder := performRequest(server, http.MethodGet, "/api/v1/weekday?date=17/11/1971", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "ok", got["status"])
	require.Equal(t, "1971-11-17", got["date"])
	require.Equal(t, "Wednesday", got["weekdayEn"])
}

func TestRouter_WeekdayUnparsable(t *testing.T) {
	server := newServerUnderTest(t, &stubCharts{}, &stubMembers{}, &stubFortune{}, &stubBilling{})

	recorder := performRequest(server, http.MethodPost, "/api/v1/weekday", `{"date":"not a date"}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "error", got["status"])
	require.NotEmpty(t, got["message"])
}

func TestRouter_RegisterMember(t *testing.T) {
	members := &stubMembers{creds: member.Credentials{UserID: "123456", Token: "abc123"}}
	server := newServerUnderTest(t, &stubCharts{}, members, &stubFortune{}, &stubBilling{})

	recorder := performRequest(server, http.MethodPost, "/api/v1/members", "")
	require.Equal(t, http.StatusCreated, recorder.Code)

	var got member.Credentials
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "123456", got.UserID)
	require.Equal(t, "abc123", got.Token)
}

func TestRouter_CheckMemberRequiresCredentials(t *testing.T) {
	server := newServerUnderTest(t, &stubCharts{}, &stubMembers{}, &stubFortune{}, &stubBilling{})

	recorder := performRequest(server, http.MethodGet, "/api/v1/members/check?user_id=123456", "")
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
}

func TestRouter_CheckMemberInvalidCredentialsCarriesPaymentLinks(t *testing.T) {
	members := &stubMembers{err: apperrors.Wrap(apperrors.CodeInvalidCredentials, "unknown user_id or token", nil)}
	billingSvc := &stubBilling{links: map[string]string{"lite": "https://pay.example/lite"}}
	server := newServerUnderTest(t, &stubCharts{}, members, &stubFortune{}, billingSvc)

	recorder := performRequest(server, http.MethodGet, "/api/v1/members/check?user_id=123456&token=bad", "")
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, false, got["valid"])
	require.NotEmpty(t, got["payment_links"])
}

func TestRouter_AskFortuneQuotaExhausted(t *testing.T) {
	fortuneSvc := &stubFortune{err: apperrors.Wrap(apperrors.CodeNoQuota, "quota exhausted", nil)}
	server := newServerUnderTest(t, &stubCharts{}, &stubMembers{}, fortuneSvc, &stubBilling{})

	recorder := performRequest(server, http.MethodPost, "/api/v1/fortunes",
		`{"user_id":"123456","token":"abc123","question":"luck?"}`)
	require.Equal(t, http.StatusPaymentRequired, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, apperrors.CodeNoQuota, errBody["error"]["code"])
}

func TestRouter_AskFortuneSuccess(t *testing.T) {
	fortuneSvc := &stubFortune{resp: fortune.Response{Success: true, Remaining: 4, Used: 1, Prediction: "ok", Answer: "ok"}}
	server := newServerUnderTest(t, &stubCharts{}, &stubMembers{}, fortuneSvc, &stubBilling{})

	recorder := performRequest(server, http.MethodPost, "/api/v1/fortunes",
		`{"user_id":"123456","token":"abc123","question":"luck?"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got fortune.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.True(t, got.Success)
	require.Equal(t, 4, got.Remaining)
}

func TestRouter_PaymentStatus(t *testing.T) {
	billingSvc := &stubBilling{status: billing.PaymentStatusResult{Status: "paid"}}
	server := newServerUnderTest(t, &stubCharts{}, &stubMembers{}, &stubFortune{}, billingSvc)

	recorder := performRequest(server, http.MethodGet, "/api/v1/payments/pi_123", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "pi_123", billingSvc.lastIntent)

	var got billing.PaymentStatusResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "paid", got.Status)
}

func TestRouter_Health(t *testing.T) {
	server := newServerUnderTest(t, &stubCharts{}, &stubMembers{}, &stubFortune{}, &stubBilling{})
	recorder := performRequest(server, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, recorder.Code)
}

func newServerUnderTest(t *testing.T, charts astro.Service, members member.Service, fortuneSvc fortune.Service, billingSvc billing.Service) *http.Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.HTTP.Address = ":0"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(charts, members, fortuneSvc, billingSvc, logger)
	return NewRouter(cfg, handler)
}

func performRequest(server *http.Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeErrorBody(t *testing.T, body []byte) map[string]map[string]string {
	t.Helper()
	var out map[string]map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

type stubCharts struct {
	result astro.ChartResult
}

func (s *stubCharts) CalcChart(context.Context, astro.BirthDescriptor) astro.ChartResult {
	return s.result
}

type stubMembers struct {
	creds member.Credentials
	err   error
}

func (s *stubMembers) Register(context.Context) (member.Credentials, error) {
	return s.creds, s.err
}

func (s *stubMembers) Verify(context.Context, string, string) (member.Member, error) {
	return member.Member{UserID: s.creds.UserID}, s.err
}

func (s *stubMembers) Authorize(context.Context, string, string) (member.Member, error) {
	return member.Member{UserID: s.creds.UserID}, s.err
}

func (s *stubMembers) SpendQuota(context.Context, string) (int, int, error) {
	return 0, 0, s.err
}

func (s *stubMembers) Fulfill(context.Context, member.Fulfillment) (member.Credentials, error) {
	return s.creds, s.err
}

func (s *stubMembers) PaymentStatus(context.Context, string) (member.Member, bool, error) {
	return member.Member{}, false, s.err
}

func (s *stubMembers) SweepExpired(context.Context) (int, error) {
	return 0, s.err
}

type stubFortune struct {
	resp fortune.Response
	err  error
}

func (s *stubFortune) Ask(context.Context, fortune.Request) (fortune.Response, error) {
	return s.resp, s.err
}

type stubBilling struct {
	status     billing.PaymentStatusResult
	links      map[string]string
	lastIntent string
}

func (s *stubBilling) CreateCheckout(context.Context, string, string, string) (billing.CheckoutResult, error) {
	return billing.CheckoutResult{}, nil
}

func (s *stubBilling) HandleWebhook(context.Context, []byte, string) (billing.WebhookResult, error) {
	return billing.WebhookResult{Received: true}, nil
}

func (s *stubBilling) PaymentStatus(_ context.Context, paymentIntentID string) (billing.PaymentStatusResult, error) {
	s.lastIntent = paymentIntentID
	return s.status, nil
}

func (s *stubBilling) PaymentLinks() map[string]string {
	return s.links
}
