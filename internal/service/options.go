package service

import (
	"log/slog"
	"time"

	"wl-portal/internal/metrics"
	"wl-portal/internal/policy"
)

// Options configures the whitelist services
type Options struct {
	Policy             policy.Policy
	Weights            map[string]int
	RequireGuildMember bool
	NotesMaxLength     int
	AuditIPSalt        string
	LockTimeout        time.Duration
}

// DefaultOptions returns the standard policy and question weights with a 5s lock wait
func DefaultOptions() Options {
	return Options{
		Policy:         policy.DefaultPolicy(),
		Weights:        policy.DefaultWeights(),
		NotesMaxLength: 2000,
		LockTimeout:    5 * time.Second,
	}
}

// Option customizes a service's collaborators
type Option func(*deps)

type deps struct {
	clock    Clock
	notifier Notifier
	cache    DetailCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func newDeps(opts []Option) deps {
	d := deps{
		clock:    time.Now,
		notifier: nopNotifier{},
		cache:    nopCache{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithClock overrides the time source
func WithClock(c Clock) Option {
	return func(d *deps) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithNotifier sets the post-commit notifier
func WithNotifier(n Notifier) Option {
	return func(d *deps) {
		if n != nil {
			d.notifier = n
		}
	}
}

// WithCache sets the reviewed-application cache
func WithCache(c DetailCache) Option {
	return func(d *deps) {
		if c != nil {
			d.cache = c
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *deps) { d.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(d *deps) {
		if l != nil {
			d.logger = l
		}
	}
}
