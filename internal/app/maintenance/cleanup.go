package maintenance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/charlesng35/omnikit/internal/auth"
	"github.com/charlesng35/omnikit/internal/monitoring"
	"github.com/charlesng35/omnikit/internal/services"
	"github.com/charlesng35/omnikit/pkg/logger"
	"github.com/charlesng35/omnikit/pkg/metrics"
)

const (
	defaultAuditRetention = 90 * 24 * time.Hour
	defaultSessionSpec    = "@hourly"
	defaultAuditSpec      = "@daily"
	defaultCacheSpec      = "@every 15m"
)

// CachePurger drops expired entries from a persistent cache.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance: purging expired sessions, pruning stale audit
// logs and dropping expired cache rows.
type Cleaner struct {
	sessions  *iauth.SessionService
	audit     *services.AuditService
	cache     CachePurger
	cron      *cron.Cron
	log       *zap.Logger
	retention time.Duration

	sessionSchedule string
	auditSchedule   string
	cacheSchedule   string

	mu   sync.Mutex
	runs map[string]*monitoring.JobRun
	now  func() time.Time
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithCachePurger enables the expired cache entry job.
func WithCachePurger(purger CachePurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = purger
	}
}

// WithAuditRetention adjusts how long audit logs are kept.
func WithAuditRetention(retention time.Duration) Option {
	return func(cleaner *Cleaner) {
		if retention > 0 {
			cleaner.retention = retention
		}
	}
}

// WithSessionSchedule overrides the cron expression for session cleanup.
func WithSessionSchedule(expr string) Option {
	return func(cleaner *Cleaner) {
		if expr != "" {
			cleaner.sessionSchedule = expr
		}
	}
}

// WithAuditSchedule overrides the cron expression for audit retention enforcement.
func WithAuditSchedule(expr string) Option {
	return func(cleaner *Cleaner) {
		if expr != "" {
			cleaner.auditSchedule = expr
		}
	}
}

// WithCacheSchedule overrides the cron expression for cache purging.
func WithCacheSchedule(expr string) Option {
	return func(cleaner *Cleaner) {
		if expr != "" {
			cleaner.cacheSchedule = expr
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the corresponding job.
func NewCleaner(sessions *iauth.SessionService, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:        sessions,
		audit:           audit,
		retention:       defaultAuditRetention,
		sessionSchedule: defaultSessionSpec,
		auditSchedule:   defaultAuditSpec,
		cacheSchedule:   defaultCacheSpec,
		log:             logger.WithModule("maintenance"),
		runs:            make(map[string]*monitoring.JobRun),
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

type job struct {
	name     string
	schedule string
	run      func(context.Context) (int64, error)
}

func (c *Cleaner) jobs() []job {
	var jobs []job
	if c.sessions != nil {
		jobs = append(jobs, job{name: "sessions", schedule: c.sessionSchedule, run: c.sessions.CleanupExpired})
	}
	if c.audit != nil && c.retention > 0 {
		jobs = append(jobs, job{name: "audit", schedule: c.auditSchedule, run: func(ctx context.Context) (int64, error) {
			return c.audit.CleanupOlderThan(ctx, c.retention)
		}})
	}
	if c.cache != nil {
		jobs = append(jobs, job{name: "cache", schedule: c.cacheSchedule, run: c.cache.PurgeExpired})
	}
	return jobs
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	jobs := c.jobs()
	if len(jobs) == 0 {
		return nil
	}

	for _, j := range jobs {
		j := j
		if _, err := c.cron.AddFunc(j.schedule, func() {
			_ = c.execute(context.Background(), j)
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially and combines their errors.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range c.jobs() {
		errs = multierr.Append(errs, c.execute(ctx, j))
	}
	return errs
}

func (c *Cleaner) execute(ctx context.Context, j job) error {
	removed, err := j.run(ctx)
	c.record(j, err)
	if err != nil {
		metrics.MaintenanceRuns.WithLabelValues(j.name, "failure").Inc()
		c.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
		return err
	}
	metrics.MaintenanceRuns.WithLabelValues(j.name, "success").Inc()
	if removed > 0 {
		c.log.Info("maintenance job completed", zap.String("job", j.name), zap.Int64("removed", removed))
	}
	return nil
}

func (c *Cleaner) record(j job, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	run, ok := c.runs[j.name]
	if !ok {
		run = &monitoring.JobRun{Job: j.name, Schedule: j.schedule}
		c.runs[j.name] = run
	}
	run.TotalRuns++
	run.LastRunAt = c.now().UTC()
	if err != nil {
		run.ConsecutiveFailures++
		run.LastError = err.Error()
		return
	}
	run.ConsecutiveFailures = 0
	run.LastError = ""
}

// JobRuns reports every configured job, including ones that have not run yet.
func (c *Cleaner) JobRuns() []monitoring.JobRun {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []monitoring.JobRun
	for _, j := range c.jobs() {
		if run, ok := c.runs[j.name]; ok {
			out = append(out, *run)
			continue
		}
		out = append(out, monitoring.JobRun{Job: j.name, Schedule: j.schedule})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Job < out[k].Job })
	return out
}
