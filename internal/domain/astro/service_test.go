package astro

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

type fakeCache struct {
	entries map[string]ChartResult
	saves   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]ChartResult)}
}

func (c *fakeCache) Get(_ context.Context, key string) (ChartResult, bool, error) {
	chart, ok := c.entries[key]
	return chart, ok, nil
}

func (c *fakeCache) Save(_ context.Context, key string, chart ChartResult, _ time.Duration) error {
	c.entries[key] = chart
	c.saves++
	return nil
}

func newTestService(cache Cache) (*service, *int, *int) {
	svc := NewService(Config{CacheTTL: time.Hour}, cache, newTestLogger()).(*service)
	positionCalls := 0
	houseCalls := 0
	svc.positions = func(jd float64) (map[Body]float64, error) {
		positionCalls++
		out := make(map[Body]float64, len(Bodies))
		for i, body := range Bodies {
			out[body] = float64(i * 40)
		}
		return out, nil
	}
	svc.houses = func(jd, lat, lng float64) (Houses, error) {
		houseCalls++
		var h Houses
		for i := range h.Cusps {
			h.Cusps[i] = float64(i * 30)
		}
		h.Ascendant = h.Cusps[0]
		h.MC = h.Cusps[9]
		return h, nil
	}
	return svc, &positionCalls, &houseCalls
}

func validBirth() BirthDescriptor {
	lat := 13.7563
	lng := 100.5018
	return BirthDescriptor{Date: "1990-04-19", Time: "11:30:00", Lat: &lat, Lng: &lng, Zone: "Asia/Bangkok"}
}

func TestCalcChartHappyPath(t *testing.T) {
	cache := newFakeCache()
	svc, _, _ := newTestService(cache)

	result := svc.CalcChart(context.Background(), validBirth())
	require.Equal(t, "ok", result.Status)
	require.Empty(t, result.Message)
	require.Equal(t, "1990-04-19T04:30:00Z", result.UTC)
	require.Len(t, result.Planets, len(Bodies))
	require.Len(t, result.Houses, 12)
	require.Equal(t, 1, cache.saves)
}

func TestCalcChartMissingFieldsShortCircuits(t *testing.T) {
	svc, positionCalls, houseCalls := newTestService(newFakeCache())

	lat := 200.0
	cases := []BirthDescriptor{
		{},
		{Date: "1990-04-19"},
		{Date: "1990-04-19", Time: "11:30:00", Zone: "Asia/Bangkok"},
		{Date: "1990-04-19", Time: "11:30:00", Zone: "Asia/Bangkok", Lat: &lat, Lng: &lat},
	}
	for i, birth := range cases {
		result := svc.CalcChart(context.Background(), birth)
		require.Equal(t, "error", result.Status, "case %d", i)
		require.NotEmpty(t, result.Message, "case %d", i)
		require.Empty(t, result.Planets, "case %d", i)
	}
	// Nothing was computed for any invalid descriptor.
	require.Zero(t, *positionCalls)
	require.Zero(t, *houseCalls)
}

func TestCalcChartServesCachedResult(t *testing.T) {
	cache := newFakeCache()
	svc, positionCalls, _ := newTestService(cache)

	first := svc.CalcChart(context.Background(), validBirth())
	second := svc.CalcChart(context.Background(), validBirth())
	require.Equal(t, first, second)
	require.Equal(t, 1, *positionCalls)
	require.Equal(t, 1, cache.saves)
}

func TestCalcChartFoldsComputationErrors(t *testing.T) {
	svc, _, _ := newTestService(newFakeCache())
	svc.positions = func(jd float64) (map[Body]float64, error) {
		return nil, apperrors.Wrap(apperrors.CodeEphemerisError, "kepler iteration diverged", errors.New("boom"))
	}

	result := svc.CalcChart(context.Background(), validBirth())
	require.Equal(t, "error", result.Status)
	require.Contains(t, result.Message, "kepler")
}

func TestCalcChartWorksWithoutCache(t *testing.T) {
	svc, _, _ := newTestService(nil)
	result := svc.CalcChart(context.Background(), validBirth())
	require.Equal(t, "ok", result.Status)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
