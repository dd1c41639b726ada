package astro

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

// Service exposes the natal chart pipeline.
type Service interface {
	// CalcChart never propagates an error: every failure is normalized into
	// a ChartResult with status "error" at this boundary.
	CalcChart(ctx context.Context, birth BirthDescriptor) ChartResult
}

// Cache stores finished charts. Charts are deterministic for a fixed
// ephemeris version, so a hit can be returned verbatim.
type Cache interface {
	Get(ctx context.Context, key string) (ChartResult, bool, error)
	Save(ctx context.Context, key string, chart ChartResult, ttl time.Duration) error
}

// Config drives chart service behavior.
type Config struct {
	CacheTTL time.Duration
}

type service struct {
	cfg    Config
	cache  Cache
	logger *slog.Logger

	// Injection seams for the numeric layers, used by tests to assert that
	// no computation runs when validation fails.
	positions func(jd float64) (map[Body]float64, error)
	houses    func(jd, lat, lng float64) (Houses, error)
}

// NewService is a wire provider for the chart domain.
func NewService(cfg Config, cache Cache, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg,
		cache:     cache,
		logger:    logger.With("component", "astro.service"),
		positions: PlanetPositions,
		houses:    PlacidusHouses,
	}
}

func (s *service) CalcChart(ctx context.Context, birth BirthDescriptor) ChartResult {
	if err := validateDescriptor(birth); err != nil {
		return errorResult(err)
	}

	key := cacheKey(birth)
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("chart cache get failed", "error", err)
		} else if ok {
			return cached
		}
	}

	instant, err := Normalize(birth.Date, birth.Time, birth.Zone)
	if err != nil {
		return errorResult(err)
	}

	var (
		planets map[Body]float64
		houses  Houses
	)
	// The two computations share only the Julian Day; run them in parallel.
	var g errgroup.Group
	g.Go(func() error {
		var err error
		planets, err = s.positions(instant.JulianDay)
		return err
	})
	g.Go(func() error {
		var err error
		houses, err = s.houses(instant.JulianDay, *birth.Lat, *birth.Lng)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("chart computation failed", "julianDay", instant.JulianDay, "error", err)
		return errorResult(err)
	}

	chart := ChartResult{
		Status:    "ok",
		UTC:       instant.UTC.Format(time.RFC3339),
		JulianDay: instant.JulianDay,
		Planets:   planets,
		Ascendant: houses.Ascendant,
		Houses:    houses.Cusps[:],
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, key, chart, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("chart cache save failed", "error", err)
		}
	}
	return chart
}

func errorResult(err error) ChartResult {
	return ChartResult{Status: "error", Message: apperrors.Message(err)}
}

func cacheKey(birth BirthDescriptor) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%.6f|%.6f", birth.Date, birth.Time, birth.Zone, *birth.Lat, *birth.Lng)))
	return hex.EncodeToString(sum[:])
}
