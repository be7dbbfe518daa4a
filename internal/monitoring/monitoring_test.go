package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/omnikit/internal/database/testutil"
	"github.com/charlesng35/omnikit/internal/monitoring"
	"github.com/charlesng35/omnikit/internal/monitoring/checks"
	"github.com/charlesng35/omnikit/internal/vault"
)

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(time.Second)
	manager.Register(
		monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
			return monitoring.ProbeResult{Status: monitoring.StatusUp}
		}),
		monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
		}),
		monitoring.Check{Name: ""},
	)

	report := manager.Evaluate(context.Background())
	require.False(t, report.Healthy())
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "database", report.Checks[0].Component)
	require.Equal(t, "cache", report.Checks[1].Component)
	require.Equal(t, "connection refused", report.Checks[1].Details)
}

func TestHealthManagerTimeoutAndPanic(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(20 * time.Millisecond)
	manager.Register(
		monitoring.NewCheck("slow", func(ctx context.Context) monitoring.ProbeResult {
			<-ctx.Done()
			return monitoring.ResultFromError(ctx.Err(), 0)
		}),
		monitoring.NewCheck("broken", func(ctx context.Context) monitoring.ProbeResult {
			panic("boom")
		}),
	)

	report := manager.Evaluate(context.Background())
	require.Equal(t, monitoring.StatusDegraded, report.Checks[0].Status)
	require.Equal(t, monitoring.StatusDown, report.Checks[1].Status)
	require.Contains(t, report.Checks[1].Details, "boom")
	require.Equal(t, monitoring.StatusDown, report.Status)
}

func TestHealthManagerEmptyIsUp(t *testing.T) {
	report := monitoring.NewHealthManager(0).Evaluate(context.Background())
	require.True(t, report.Healthy())
	require.Equal(t, monitoring.StatusUp, report.Status)
	require.Empty(t, report.Checks)
}

func TestWorstStatus(t *testing.T) {
	require.Equal(t, monitoring.StatusUp, monitoring.WorstStatus(monitoring.StatusUp, monitoring.StatusUp))
	require.Equal(t, monitoring.StatusDegraded, monitoring.WorstStatus(monitoring.StatusUp, monitoring.StatusDegraded))
	require.Equal(t, monitoring.StatusDown, monitoring.WorstStatus(monitoring.StatusDown, monitoring.StatusDegraded))
}

func TestDatabaseCheck(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	result := checks.Database(db).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	result = checks.Database(db).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.NotEmpty(t, result.Details)

	require.Equal(t, monitoring.StatusDown, checks.Database(nil).Run(context.Background()).Status)
}

type brokenSealer struct{}

func (brokenSealer) SealString(string) (string, error) { return "", errors.New("cipher unavailable") }
func (brokenSealer) OpenString(string) (string, error) { return "", nil }

func TestVaultCheck(t *testing.T) {
	crypto, err := vault.NewCrypto([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	require.Equal(t, monitoring.StatusUp, checks.Vault(crypto).Run(context.Background()).Status)

	result := checks.Vault(brokenSealer{}).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Equal(t, "cipher unavailable", result.Details)
}

type staticReporter []monitoring.JobRun

func (r staticReporter) JobRuns() []monitoring.JobRun { return r }

func TestMaintenanceCheck(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name   string
		runs   staticReporter
		status monitoring.ProbeStatus
	}{
		{name: "no jobs", runs: nil, status: monitoring.StatusUp},
		{name: "pending", runs: staticReporter{{Job: "sessions"}}, status: monitoring.StatusUp},
		{name: "healthy", runs: staticReporter{{Job: "sessions", TotalRuns: 4, LastRunAt: now}}, status: monitoring.StatusUp},
		{name: "single failure", runs: staticReporter{
			{Job: "audit", TotalRuns: 1, ConsecutiveFailures: 1, LastRunAt: now, LastError: "timeout"},
		}, status: monitoring.StatusDegraded},
		{name: "repeated failures", runs: staticReporter{
			{Job: "sessions", TotalRuns: 3, LastRunAt: now},
			{Job: "audit", TotalRuns: 3, ConsecutiveFailures: 3, LastRunAt: now, LastError: "timeout"},
		}, status: monitoring.StatusDown},
		{name: "stale", runs: staticReporter{{Job: "cache", TotalRuns: 1, LastRunAt: now.Add(-2 * time.Hour)}}, status: monitoring.StatusDegraded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := checks.Maintenance(tc.runs, time.Hour).Run(context.Background())
			require.Equal(t, tc.status, result.Status, result.Details)
		})
	}

	require.Equal(t, monitoring.StatusUp, checks.Maintenance(nil, 0).Run(context.Background()).Status)
}
