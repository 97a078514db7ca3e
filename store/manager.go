package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/qadash/qadash/analytics"
	"github.com/qadash/qadash/config"
	"github.com/qadash/qadash/metrics"
	"github.com/qadash/qadash/model"
)

// State identifies where the manager is in the provider lifecycle.
type State string

const (
	StateUnselected   State = "unselected"
	StateSelecting    State = "selecting"
	StateInitializing State = "initializing"
	StateFallingBack  State = "falling_back"
	StateReady        State = "ready"
)

// newStoreFn is swapped in tests to exercise selection and fallback
// without real provider credentials.
var newStoreFn = newStore

// Manager is the storage facade: the single entry point hiding which
// provider is active. It selects and initializes a provider at
// construction, degrades to local storage when implicit selection
// fails, and supports a live provider switch.
type Manager struct {
	logger zerolog.Logger
	cfg    config.Config
	m      *metrics.Metrics

	mu          sync.RWMutex
	state       State
	transitions []State
	provider    ProviderType
	active      RecordStore
}

// NewManager runs provider selection and initialization. Any
// initialization failure during this implicit selection falls back to
// the local filesystem provider, so a process with zero cloud
// configuration is still usable.
func NewManager(ctx context.Context, logger zerolog.Logger, cfg config.Config, m *metrics.Metrics) (*Manager, error) {
	mgr := &Manager{logger: logger, cfg: cfg, m: m, state: StateUnselected}
	mgr.transitions = append(mgr.transitions, StateUnselected)

	mgr.setState(StateSelecting)
	providerType := selectProvider(cfg)
	logger.Info().Str("provider", string(providerType)).Msg("Selected storage provider")

	mgr.setState(StateInitializing)
	st, err := newStoreFn(ctx, logger, providerType, cfg)
	if err != nil && providerType != ProviderLocal {
		logger.Warn().Err(err).Str("provider", string(providerType)).
			Msg("Provider initialization failed, falling back to local storage")
		mgr.setState(StateFallingBack)
		providerType = ProviderLocal
		mgr.setState(StateInitializing)
		st, err = newStoreFn(ctx, logger, providerType, cfg)
	}
	if err != nil {
		return nil, &InitError{Provider: providerType, Err: err}
	}

	mgr.provider = providerType
	mgr.active = st
	mgr.setState(StateReady)
	if m != nil {
		m.ActiveProvider.WithLabelValues(string(providerType)).Set(1)
	}
	return mgr, nil
}

// selectProvider picks the provider to initialize: an explicit
// configuration value wins, then the first provider whose credentials
// are configured (s3, gcs, postgres, in that order), then local.
func selectProvider(cfg config.Config) ProviderType {
	if cfg.Provider != "" {
		return ProviderType(strings.ToLower(cfg.Provider))
	}
	if cfg.S3.Bucket != "" {
		return ProviderS3
	}
	if cfg.GCS.Bucket != "" {
		return ProviderGCS
	}
	if cfg.Postgres.DSN != "" {
		return ProviderPostgres
	}
	return ProviderLocal
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.transitions = append(m.transitions, s)
	m.mu.Unlock()
	m.logger.Debug().Str("state", string(s)).Msg("Storage state transition")
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Transitions returns the full state history, so callers can assert on
// the FallingBack edge rather than on side effects.
func (m *Manager) Transitions() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]State, len(m.transitions))
	copy(out, m.transitions)
	return out
}

// Provider returns the active provider type.
func (m *Manager) Provider() ProviderType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.provider
}

// ProviderInfo describes the active provider.
func (m *Manager) ProviderInfo() ProviderInfo {
	st, _ := m.current()
	return st.Info()
}

// SwitchProvider re-runs initialization for the named provider. On
// failure the previous provider stays active and the error is
// surfaced; an explicit switch never falls back automatically.
func (m *Manager) SwitchProvider(ctx context.Context, name string) error {
	providerType := ProviderType(strings.ToLower(name))
	if !providerType.IsValid() {
		return fmt.Errorf("unknown provider %q, must be %s", name, AllProviderTypesString())
	}

	m.setState(StateInitializing)
	st, err := newStoreFn(ctx, m.logger, providerType, m.cfg)
	if err != nil {
		m.setState(StateReady)
		return &InitError{Provider: providerType, Err: err}
	}

	m.mu.Lock()
	old := m.active
	oldProvider := m.provider
	m.active = st
	m.provider = providerType
	m.mu.Unlock()
	m.setState(StateReady)

	if old != nil {
		if err := old.Close(); err != nil {
			m.logger.Warn().Err(err).Str("provider", string(oldProvider)).Msg("Failed to close previous provider")
		}
	}
	if m.m != nil {
		m.m.ActiveProvider.WithLabelValues(string(oldProvider)).Set(0)
		m.m.ActiveProvider.WithLabelValues(string(providerType)).Set(1)
	}
	m.logger.Info().
		Str("from", string(oldProvider)).
		Str("to", string(providerType)).
		Msg("Switched storage provider")
	return nil
}

func (m *Manager) current() (RecordStore, ProviderType) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active, m.provider
}

// opContext bounds a provider call so no operation blocks indefinitely.
func (m *Manager) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := m.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (m *Manager) count(provider ProviderType, op string, err error) {
	if m.m == nil {
		return
	}
	m.m.Operations.WithLabelValues(string(provider), op).Inc()
	if err != nil {
		m.m.Errors.WithLabelValues(string(provider), op).Inc()
	}
}

// StoreTestResult forwards to the active provider.
func (m *Manager) StoreTestResult(ctx context.Context, record model.TestResult) (model.StoredObject, error) {
	st, provider := m.current()
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	obj, err := st.StoreTestResult(ctx, record)
	m.count(provider, "store", err)
	if err != nil {
		return model.StoredObject{}, err
	}
	if m.m != nil {
		m.m.RecordsStored.WithLabelValues(string(provider)).Inc()
	}
	return obj, nil
}

// GetTestResults forwards to the active provider.
func (m *Manager) GetTestResults(ctx context.Context, criteria model.FilterCriteria) ([]model.TestResult, error) {
	st, provider := m.current()
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	records, err := st.GetTestResults(ctx, criteria)
	m.count(provider, "list", err)
	return records, err
}

// SearchTestResults forwards to the active provider.
func (m *Manager) SearchTestResults(ctx context.Context, term string) ([]model.TestResult, error) {
	st, provider := m.current()
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	records, err := st.SearchTestResults(ctx, term)
	m.count(provider, "search", err)
	return records, err
}

// GetAnalytics retrieves the matching records and aggregates them with
// the shared analytics function, so summaries are identical no matter
// which provider served the records.
func (m *Manager) GetAnalytics(ctx context.Context, criteria model.FilterCriteria) (model.AnalyticsSummary, error) {
	records, err := m.GetTestResults(ctx, criteria)
	if err != nil {
		return model.AnalyticsSummary{}, err
	}
	return analytics.Aggregate(records), nil
}

// CleanupOldResults forwards to the active provider.
func (m *Manager) CleanupOldResults(ctx context.Context, daysToKeep int) (int, error) {
	st, provider := m.current()
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	deleted, err := st.CleanupOldResults(ctx, daysToKeep)
	m.count(provider, "cleanup", err)
	return deleted, err
}

// StorageInfo forwards to the active provider.
func (m *Manager) StorageInfo(ctx context.Context) (model.StorageInfo, error) {
	st, provider := m.current()
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	info, err := st.StorageInfo(ctx)
	m.count(provider, "info", err)
	return info, err
}

// Close releases the active provider.
func (m *Manager) Close() error {
	st, _ := m.current()
	if st == nil {
		return nil
	}
	return st.Close()
}
