// Package accounts holds the account registry (C6): per-account static
// configuration loaded from JSON and the mutex-guarded runtime state layered
// on top of it.
package accounts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atlas-desktop/trading-backend/pkg/types"
	"go.uber.org/zap"
)

// Registry holds account configuration and runtime state.
type Registry struct {
	mu      sync.RWMutex
	logger  *zap.Logger
	configs map[string]types.AccountInfo
	state   map[string]*types.AccountRuntimeState
}

// LoadFromFile reads an accounts.json document and builds a Registry. A
// missing file is not an error — it yields an empty registry, matching the
// configuration layer's "missing file means no accounts configured" rule.
func LoadFromFile(logger *zap.Logger, path string) (*Registry, error) {
	logger = logger.Named("accounts")

	r := &Registry{
		logger:  logger,
		configs: make(map[string]types.AccountInfo),
		state:   make(map[string]*types.AccountRuntimeState),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("accounts config file not found, starting with zero accounts", zap.String("path", path))
			return r, nil
		}
		return nil, fmt.Errorf("accounts: read %s: %w", path, err)
	}

	var list []types.AccountInfo
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("accounts: parse %s: %w", path, err)
	}

	for _, a := range list {
		r.configs[a.ID] = a
		r.state[a.ID] = &types.AccountRuntimeState{IsConnected: true}
	}

	logger.Info("loaded accounts", zap.Int("count", len(r.configs)))
	return r, nil
}

// All returns every configured account, enabled or not.
func (r *Registry) All() []types.AccountInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.AccountInfo, 0, len(r.configs))
	for _, a := range r.configs {
		out = append(out, a)
	}
	return out
}

// GetAccountsForSymbol returns the enabled accounts whose symbol list
// contains symbol, case-insensitively.
func (r *Registry) GetAccountsForSymbol(symbol string) []types.AccountInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToUpper(symbol)
	var out []types.AccountInfo
	for _, a := range r.configs {
		if !a.Enabled {
			continue
		}
		for _, s := range a.Symbols {
			if strings.ToUpper(s) == needle {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// Get returns one account's static config.
func (r *Registry) Get(id string) (types.AccountInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.configs[id]
	return a, ok
}

// State returns a copy of one account's runtime state.
func (r *Registry) State(id string) types.AccountRuntimeState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.state[id]; ok {
		return *s
	}
	return types.AccountRuntimeState{}
}

func (r *Registry) mutate(id string, fn func(*types.AccountRuntimeState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.state[id]
	if !ok {
		s = &types.AccountRuntimeState{}
		r.state[id] = s
	}
	fn(s)
}

// PauseAccount marks an account paused with a reason, last-writer-wins.
func (r *Registry) PauseAccount(id, reason string) {
	r.mutate(id, func(s *types.AccountRuntimeState) {
		s.Paused = true
		s.LastError = reason
		s.LastErrorTime = time.Now()
	})
	r.logger.Warn("account paused", zap.String("accountId", id), zap.String("reason", reason))
}

// ResumeAccount clears the paused flag.
func (r *Registry) ResumeAccount(id string) {
	r.mutate(id, func(s *types.AccountRuntimeState) {
		s.Paused = false
	})
	r.logger.Info("account resumed", zap.String("accountId", id))
}

// RecordTrade updates the last-traded bookkeeping for an account/symbol.
func (r *Registry) RecordTrade(id, symbol string) {
	r.mutate(id, func(s *types.AccountRuntimeState) {
		s.LastTradeTime = time.Now()
		s.LastTradeSymbol = symbol
	})
}

// RecordError attaches the most recent error seen for an account.
func (r *Registry) RecordError(id string, err error) {
	r.mutate(id, func(s *types.AccountRuntimeState) {
		s.LastError = err.Error()
		s.LastErrorTime = time.Now()
	})
}

// UpdateConnectionStatus records broker connectivity for an account.
func (r *Registry) UpdateConnectionStatus(id string, connected bool) {
	r.mutate(id, func(s *types.AccountRuntimeState) {
		s.IsConnected = connected
	})
}
