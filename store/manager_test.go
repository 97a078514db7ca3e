package store

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/qadash/qadash/config"
	"github.com/qadash/qadash/metrics"
	"github.com/qadash/qadash/model"
)

// stubStore records calls without touching any backend.
type stubStore struct {
	provider ProviderType
	closed   bool
	records  []model.TestResult
	storeErr error
}

func (s *stubStore) StoreTestResult(ctx context.Context, record model.TestResult) (model.StoredObject, error) {
	if s.storeErr != nil {
		return model.StoredObject{}, s.storeErr
	}
	s.records = append(s.records, record)
	return model.StoredObject{ID: "stub", Name: "stub.json"}, nil
}

func (s *stubStore) GetTestResults(ctx context.Context, criteria model.FilterCriteria) ([]model.TestResult, error) {
	return s.records, nil
}

func (s *stubStore) SearchTestResults(ctx context.Context, term string) ([]model.TestResult, error) {
	return s.GetTestResults(ctx, model.FilterCriteria{SearchTerm: term})
}

func (s *stubStore) CleanupOldResults(ctx context.Context, daysToKeep int) (int, error) {
	return 0, nil
}

func (s *stubStore) StorageInfo(ctx context.Context) (model.StorageInfo, error) {
	return model.StorageInfo{}, nil
}

func (s *stubStore) Info() ProviderInfo {
	return ProviderInfo{Name: string(s.provider), Type: string(s.provider)}
}

func (s *stubStore) Close() error {
	s.closed = true
	return nil
}

// withStubFactory replaces the provider factory for the test duration.
// failing lists the provider types whose initialization must fail.
func withStubFactory(t *testing.T, failing ...ProviderType) map[ProviderType]*stubStore {
	t.Helper()
	built := map[ProviderType]*stubStore{}
	orig := newStoreFn
	newStoreFn = func(ctx context.Context, logger zerolog.Logger, providerType ProviderType, cfg config.Config) (RecordStore, error) {
		for _, f := range failing {
			if f == providerType {
				return nil, errors.New("init refused")
			}
		}
		st := &stubStore{provider: providerType}
		built[providerType] = st
		return st, nil
	}
	t.Cleanup(func() { newStoreFn = orig })
	return built
}

func TestSelectProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want ProviderType
	}{
		{
			name: "zero config selects local",
			cfg:  config.Config{},
			want: ProviderLocal,
		},
		{
			name: "explicit provider wins",
			cfg: config.Config{
				Provider: "GCS",
				S3:       config.S3Config{Bucket: "b"},
			},
			want: ProviderGCS,
		},
		{
			name: "s3 bucket implies s3",
			cfg:  config.Config{S3: config.S3Config{Bucket: "b"}},
			want: ProviderS3,
		},
		{
			name: "gcs bucket implies gcs",
			cfg:  config.Config{GCS: config.GCSConfig{Bucket: "b"}},
			want: ProviderGCS,
		},
		{
			name: "postgres dsn implies postgres",
			cfg:  config.Config{Postgres: config.PostgresConfig{DSN: "postgres://"}},
			want: ProviderPostgres,
		},
		{
			name: "s3 beats gcs and postgres",
			cfg: config.Config{
				S3:       config.S3Config{Bucket: "b"},
				GCS:      config.GCSConfig{Bucket: "b"},
				Postgres: config.PostgresConfig{DSN: "postgres://"},
			},
			want: ProviderS3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, selectProvider(tt.cfg))
		})
	}
}

func TestNewManager_ZeroConfigUsesLocal(t *testing.T) {
	withStubFactory(t)

	mgr, err := NewManager(context.Background(), zerolog.Nop(), config.Config{}, nil)
	require.NoError(t, err)
	defer mgr.Close()

	require.Equal(t, ProviderLocal, mgr.Provider())
	require.Equal(t, StateReady, mgr.State())
	require.Equal(t, []State{StateUnselected, StateSelecting, StateInitializing, StateReady}, mgr.Transitions())
}

func TestNewManager_FallsBackToLocal(t *testing.T) {
	built := withStubFactory(t, ProviderS3)

	cfg := config.Config{S3: config.S3Config{Bucket: "unreachable"}}
	mgr, err := NewManager(context.Background(), zerolog.Nop(), cfg, nil)
	require.NoError(t, err)
	defer mgr.Close()

	require.Equal(t, ProviderLocal, mgr.Provider())
	require.Contains(t, mgr.Transitions(), StateFallingBack)
	require.Equal(t, StateReady, mgr.State())
	require.NotNil(t, built[ProviderLocal])

	// The degraded manager must still serve reads and writes.
	_, err = mgr.StoreTestResult(context.Background(), model.TestResult{TestName: "t", Status: model.StatusPassed})
	require.NoError(t, err)
	records, err := mgr.GetTestResults(context.Background(), model.FilterCriteria{})
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestNewManager_LocalInitFailureIsFatal(t *testing.T) {
	withStubFactory(t, ProviderLocal)

	_, err := NewManager(context.Background(), zerolog.Nop(), config.Config{}, nil)
	require.Error(t, err)
	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	require.Equal(t, ProviderLocal, initErr.Provider)
}

func TestSwitchProvider(t *testing.T) {
	built := withStubFactory(t)

	mgr, err := NewManager(context.Background(), zerolog.Nop(), config.Config{}, nil)
	require.NoError(t, err)
	defer mgr.Close()
	require.Equal(t, ProviderLocal, mgr.Provider())

	require.NoError(t, mgr.SwitchProvider(context.Background(), "s3"))
	require.Equal(t, ProviderS3, mgr.Provider())
	require.True(t, built[ProviderLocal].closed)
}

func TestSwitchProvider_FailureKeepsPrevious(t *testing.T) {
	built := withStubFactory(t, ProviderGCS)

	mgr, err := NewManager(context.Background(), zerolog.Nop(), config.Config{}, nil)
	require.NoError(t, err)
	defer mgr.Close()

	err = mgr.SwitchProvider(context.Background(), "gcs")
	require.Error(t, err)
	var initErr *InitError
	require.ErrorAs(t, err, &initErr)

	// No automatic fallback on an explicit switch: the previous
	// provider keeps serving.
	require.Equal(t, ProviderLocal, mgr.Provider())
	require.Equal(t, StateReady, mgr.State())
	require.NotContains(t, mgr.Transitions(), StateFallingBack)
	require.False(t, built[ProviderLocal].closed)
	_, err = mgr.StoreTestResult(context.Background(), model.TestResult{TestName: "t", Status: model.StatusPassed})
	require.NoError(t, err)
}

func TestSwitchProvider_UnknownName(t *testing.T) {
	withStubFactory(t)

	mgr, err := NewManager(context.Background(), zerolog.Nop(), config.Config{}, nil)
	require.NoError(t, err)
	defer mgr.Close()

	err = mgr.SwitchProvider(context.Background(), "dropbox")
	require.Error(t, err)
	require.Equal(t, ProviderLocal, mgr.Provider())
}

func TestManager_Metrics(t *testing.T) {
	built := withStubFactory(t)
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())

	mgr, err := NewManager(context.Background(), zerolog.Nop(), config.Config{}, m)
	require.NoError(t, err)
	defer mgr.Close()
	require.Equal(t, 1.0, testutil.ToFloat64(m.ActiveProvider.WithLabelValues("local")))

	_, err = mgr.StoreTestResult(context.Background(), model.TestResult{TestName: "t", Status: model.StatusPassed})
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("local", "store")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RecordsStored.WithLabelValues("local")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.Errors.WithLabelValues("local", "store")))

	built[ProviderLocal].storeErr = errors.New("disk full")
	_, err = mgr.StoreTestResult(context.Background(), model.TestResult{TestName: "t", Status: model.StatusPassed})
	require.Error(t, err)
	require.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("local", "store")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("local", "store")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RecordsStored.WithLabelValues("local")), "failed writes must not count as stored records")

	_, err = mgr.GetTestResults(context.Background(), model.FilterCriteria{})
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("local", "list")))

	require.NoError(t, mgr.SwitchProvider(context.Background(), "s3"))
	require.Equal(t, 0.0, testutil.ToFloat64(m.ActiveProvider.WithLabelValues("local")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ActiveProvider.WithLabelValues("s3")))
}

func TestManager_GetAnalytics(t *testing.T) {
	withStubFactory(t)

	mgr, err := NewManager(context.Background(), zerolog.Nop(), config.Config{}, nil)
	require.NoError(t, err)
	defer mgr.Close()

	for _, status := range []model.Status{model.StatusPassed, model.StatusPassed, model.StatusFailed} {
		_, err := mgr.StoreTestResult(context.Background(), model.TestResult{TestName: "t", Status: status})
		require.NoError(t, err)
	}

	summary, err := mgr.GetAnalytics(context.Background(), model.FilterCriteria{})
	require.NoError(t, err)
	require.Equal(t, 3, summary.TotalTests)
	require.Equal(t, 2, summary.PassedTests)
	require.Equal(t, 66.67, summary.SuccessRate)
}
