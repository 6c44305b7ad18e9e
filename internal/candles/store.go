// Package candles provides per-symbol, per-timeframe ordered candle
// sequences on demand.
package candles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/atlas-desktop/trading-backend/pkg/types"
	"go.uber.org/zap"
)

// ErrInsufficientCandles is returned when a symbol/timeframe has no loaded
// data. The store never fabricates candles: structure detection must be a
// pure function of real input, not of synthetic filler.
var ErrInsufficientCandles = errors.New("candles: no data loaded for symbol/timeframe")

// Store is the candle store (C1). It is read-only to every other component.
type Store struct {
	mu      sync.RWMutex
	logger  *zap.Logger
	dataDir string
	cache   map[string][]types.Candle
}

// New creates a candle store rooted at dataDir, loading nothing eagerly.
func New(logger *zap.Logger, dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("candles: create data dir: %w", err)
	}
	return &Store{
		logger:  logger.Named("candles"),
		dataDir: dataDir,
		cache:   make(map[string][]types.Candle),
	}, nil
}

func cacheKey(symbol string, tf types.Timeframe) string {
	return symbol + "_" + string(tf)
}

// Load returns the ordered candle sequence for symbol/timeframe between
// start and end (inclusive), loading from the on-disk JSON file on first
// access and caching thereafter.
func (s *Store) Load(ctx context.Context, symbol string, tf types.Timeframe, start, end time.Time) ([]types.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cacheKey(symbol, tf)
	bars, ok := s.cache[key]
	if !ok {
		loaded, err := s.readFromDisk(symbol, tf)
		if err != nil {
			return nil, err
		}
		bars = loaded
		s.cache[key] = bars
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrInsufficientCandles, symbol, tf)
	}

	return filterRange(bars, start, end), nil
}

// LoadLatest returns the most recent n candles for symbol/timeframe, in
// ascending order.
func (s *Store) LoadLatest(ctx context.Context, symbol string, tf types.Timeframe, n int) ([]types.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cacheKey(symbol, tf)
	bars, ok := s.cache[key]
	if !ok {
		loaded, err := s.readFromDisk(symbol, tf)
		if err != nil {
			return nil, err
		}
		bars = loaded
		s.cache[key] = bars
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrInsufficientCandles, symbol, tf)
	}
	if len(bars) <= n {
		out := make([]types.Candle, len(bars))
		copy(out, bars)
		return out, nil
	}
	out := make([]types.Candle, n)
	copy(out, bars[len(bars)-n:])
	return out, nil
}

func (s *Store) readFromDisk(symbol string, tf types.Timeframe) ([]types.Candle, error) {
	filename := filepath.Join(s.dataDir, fmt.Sprintf("%s_%s.json", symbol, tf))
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("candles: read %s: %w", filename, err)
	}

	var bars []types.Candle
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("candles: parse %s: %w", filename, err)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].StartTime.Before(bars[j].StartTime)
	})

	return bars, nil
}

// Save writes a candle sequence to disk and refreshes the cache, used by
// ingestion processes external to this package (out of scope per the core
// spec) and by tests to seed fixtures.
func (s *Store) Save(symbol string, tf types.Timeframe, bars []types.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filename := filepath.Join(s.dataDir, fmt.Sprintf("%s_%s.json", symbol, tf))
	data, err := json.MarshalIndent(bars, "", "  ")
	if err != nil {
		return fmt.Errorf("candles: marshal: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("candles: write %s: %w", filename, err)
	}
	s.cache[cacheKey(symbol, tf)] = bars
	return nil
}

func filterRange(bars []types.Candle, start, end time.Time) []types.Candle {
	filtered := make([]types.Candle, 0, len(bars))
	for _, b := range bars {
		if (b.StartTime.Equal(start) || b.StartTime.After(start)) &&
			(b.StartTime.Equal(end) || b.StartTime.Before(end)) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}

// ClearCache drops all cached candle sequences, forcing the next Load/LoadLatest
// to re-read from disk.
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string][]types.Candle)
}
