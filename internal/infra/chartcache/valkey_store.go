package chartcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/astrowise/astrowise-api/internal/domain/astro"
)

// ValkeyStore caches charts in a Valkey-compatible database. Charts are
// deterministic for a fixed ephemeris version, so hits are served verbatim.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "chart"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// Get implements astro.Cache.
func (s *ValkeyStore) Get(ctx context.Context, key string) (astro.ChartResult, bool, error) {
	cmd := s.client.B().Get().Key(s.key(key)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return astro.ChartResult{}, false, nil
		}
		return astro.ChartResult{}, false, err
	}
	var chart astro.ChartResult
	if err := json.Unmarshal([]byte(payload), &chart); err != nil {
		return astro.ChartResult{}, false, err
	}
	return chart, true, nil
}

// Save caches the chart with optional TTL.
func (s *ValkeyStore) Save(ctx context.Context, key string, chart astro.ChartResult, ttl time.Duration) error {
	payload, err := json.Marshal(chart)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.key(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) key(key string) string {
	return s.prefix + ":" + key
}

var _ astro.Cache = (*ValkeyStore)(nil)
