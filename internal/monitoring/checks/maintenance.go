package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/omnikit/internal/monitoring"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// Maintenance verifies that background jobs run successfully within maxAge. Repeated failures
// mark the probe down; a stale run only degrades it.
func Maintenance(reporter monitoring.JobReporter, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if reporter == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "maintenance disabled"}
		}

		runs := reporter.JobRuns()
		if len(runs) == 0 {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusUp,
				Details:  "no maintenance jobs registered",
				Duration: time.Since(start),
			}
		}

		status := monitoring.StatusUp
		var notes []string
		now := time.Now()

		for _, run := range runs {
			switch {
			case run.TotalRuns == 0:
				notes = append(notes, run.Job+": pending first run")
			case run.ConsecutiveFailures >= 2:
				status = monitoring.WorstStatus(status, monitoring.StatusDown)
				notes = append(notes, run.Job+": "+run.LastError)
			case run.ConsecutiveFailures == 1:
				status = monitoring.WorstStatus(status, monitoring.StatusDegraded)
				notes = append(notes, run.Job+": "+run.LastError)
			case now.Sub(run.LastRunAt) > maxAge:
				status = monitoring.WorstStatus(status, monitoring.StatusDegraded)
				notes = append(notes, run.Job+": stale run "+run.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{
			Status:   status,
			Details:  strings.Join(notes, "; "),
			Duration: time.Since(start),
		}
	})
}
