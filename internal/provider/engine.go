package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/steward/internal/backoff"
	"github.com/ShayCichocki/steward/internal/eventlog"
	"github.com/ShayCichocki/steward/internal/metrics"
	"github.com/ShayCichocki/steward/pkg/models"
)

const (
	defaultCooldown = 60 * time.Second
	defaultTimeout  = 2 * time.Minute
	agentName       = "provider_engine"
)

// Config controls candidate ordering and failure handling.
type Config struct {
	// Default is tried right after any router preference. Empty means the first registered provider.
	Default string
	// RouterPreference is placed first when healthy and no per-call preference is given.
	RouterPreference string
	// FallbackOrder follows the default provider.
	FallbackOrder []string
	// Cooldown maps the consecutive rate-limit count onto a cooldown duration.
	Cooldown backoff.Policy
	// Timeout bounds each provider call unless Timeouts overrides it.
	Timeout  time.Duration
	Timeouts map[string]time.Duration
}

// SendOptions are per-call overrides.
type SendOptions struct {
	// Preferred is tried first when healthy.
	Preferred string
}

// Health is the runtime state of one provider.
type Health struct {
	Name            string    `json:"name"`
	Models          []string  `json:"models"`
	Available       bool      `json:"available"`
	CooldownUntil   time.Time `json:"cooldown_until,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	LastErrorAt     time.Time `json:"last_error_at,omitempty"`
	RateLimitStreak int       `json:"rate_limit_streak"`
	Successes       int       `json:"successes"`
	Failures        int       `json:"failures"`
}

// CoolingDown reports whether the provider is still in a rate-limit cooldown at now.
func (h Health) CoolingDown(now time.Time) bool {
	return now.Before(h.CooldownUntil)
}

// Selectable reports whether the provider may be invoked at now.
func (h Health) Selectable(now time.Time) bool {
	return h.Available && !h.CoolingDown(now)
}

// Engine tries providers in order until one succeeds.
type Engine struct {
	cfg       Config
	order     []string
	providers map[string]Provider
	emitter   eventlog.Emitter
	logger    zerolog.Logger
	now       func() time.Time

	mu     sync.Mutex
	health map[string]*Health
}

// Option configures an Engine.
type Option func(*Engine)

// WithEmitter sets the audit event sink.
func WithEmitter(e eventlog.Emitter) Option {
	return func(eng *Engine) { eng.emitter = e }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithClock overrides the time source used for cooldowns.
func WithClock(now func() time.Time) Option {
	return func(eng *Engine) { eng.now = now }
}

// NewEngine registers providers in the given order.
func NewEngine(cfg Config, providers []Provider, opts ...Option) (*Engine, error) {
	if len(providers) == 0 {
		return nil, &ConfigurationError{Err: ErrNoProviders}
	}

	e := &Engine{
		cfg:       cfg,
		providers: make(map[string]Provider, len(providers)),
		health:    make(map[string]*Health, len(providers)),
		emitter:   eventlog.Nop{},
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, p := range providers {
		name := p.Name()
		if name == "" {
			return nil, &ConfigurationError{Err: errors.New("provider with empty name")}
		}
		if _, dup := e.providers[name]; dup {
			return nil, &ConfigurationError{Err: fmt.Errorf("duplicate provider %q", name)}
		}
		e.providers[name] = p
		e.order = append(e.order, name)
		h := &Health{
			Name:      name,
			Models:    append([]string(nil), p.Models()...),
			Available: true,
		}
		if c, ok := p.(interface{ ConfigError() error }); ok && c.ConfigError() != nil {
			h.Available = false
			h.LastError = truncate(c.ConfigError().Error(), maxFailureMessage)
			h.LastErrorAt = e.now()
			e.logger.Warn().Err(c.ConfigError()).Str("provider", name).Msg("provider registered as unavailable")
		}
		e.health[name] = h
	}

	if e.cfg.Default == "" {
		e.cfg.Default = e.order[0]
	}
	if _, ok := e.providers[e.cfg.Default]; !ok {
		return nil, &ConfigurationError{Err: fmt.Errorf("default provider %q is not registered", e.cfg.Default)}
	}
	for _, name := range e.cfg.FallbackOrder {
		if _, ok := e.providers[name]; !ok {
			e.logger.Warn().Str("provider", name).Msg("fallback provider not registered, ignoring")
		}
	}
	if e.cfg.Cooldown.Base <= 0 {
		e.cfg.Cooldown = backoff.Constant(defaultCooldown)
	}
	if e.cfg.Timeout <= 0 {
		e.cfg.Timeout = defaultTimeout
	}

	return e, nil
}

// Send tries each candidate in order and returns the first success.
// It returns *ExhaustedError when no candidate produced a response.
func (e *Engine) Send(ctx context.Context, req Request, opts SendOptions) (*Response, error) {
	candidates := e.candidates(opts.Preferred)
	var failures []Failure

	for i, name := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("send cancelled: %w", err)
		}

		now := e.now()
		e.mu.Lock()
		h := *e.health[name]
		e.mu.Unlock()

		if !h.Selectable(now) {
			reason := "skipped: rate-limited"
			if !h.Available {
				reason = "skipped: unavailable"
			}
			failures = append(failures, Failure{Provider: name, Message: reason, At: now, Skipped: true})
			metrics.ProviderCalls.WithLabelValues(name, "skipped").Inc()
			e.emit(models.EventProviderSkipped, reason, map[string]any{"provider": name})
			continue
		}

		resp, err := e.invoke(ctx, name, req)
		if err == nil {
			resp.Provider = name
			resp.Fallback = i > 0
			e.recordSuccess(name)
			metrics.ProviderCalls.WithLabelValues(name, "success").Inc()
			e.emit(models.EventProviderSuccess, "generation succeeded", map[string]any{
				"provider": name,
				"model":    resp.Model,
				"fallback": resp.Fallback,
			})
			return resp, nil
		}

		failures = append(failures, e.recordFailure(name, err))
	}

	exhausted := &ExhaustedError{Failures: failures}
	e.emit(models.EventProviderExhausted, exhausted.Error(), map[string]any{"attempts": len(failures)})
	return nil, exhausted
}

// invoke calls one provider bounded by its timeout.
func (e *Engine) invoke(ctx context.Context, name string, req Request) (*Response, error) {
	p := e.providers[name]
	timeout := e.cfg.Timeout
	if t, ok := e.cfg.Timeouts[name]; ok && t > 0 {
		timeout = t
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req.Model = pickModel(p, req.Model)
	start := time.Now()
	resp, err := p.Generate(callCtx, req)
	metrics.ProviderLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, &ProviderError{Provider: name, Err: errors.New("empty response")}
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}
	if resp.Duration == 0 {
		resp.Duration = time.Since(start)
	}
	return resp, nil
}

// candidates builds the de-duplicated try order:
// preferred (if healthy), default, fallback order, then everything else.
func (e *Engine) candidates(preferred string) []string {
	if preferred == "" {
		preferred = e.cfg.RouterPreference
	}

	seen := make(map[string]bool, len(e.order))
	out := make([]string, 0, len(e.order))
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		if _, ok := e.providers[name]; !ok {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	if preferred != "" {
		e.mu.Lock()
		h, ok := e.health[preferred]
		healthy := ok && h.Selectable(e.now())
		e.mu.Unlock()
		if healthy {
			add(preferred)
		}
	}
	add(e.cfg.Default)
	for _, name := range e.cfg.FallbackOrder {
		add(name)
	}
	for _, name := range e.order {
		add(name)
	}
	return out
}

func (e *Engine) recordSuccess(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.health[name]
	h.Successes++
	h.LastError = ""
	h.CooldownUntil = time.Time{}
	h.RateLimitStreak = 0
}

// recordFailure updates health for a failed call and returns the failure record.
func (e *Engine) recordFailure(name string, err error) Failure {
	now := e.now()
	msg := truncate(err.Error(), maxFailureMessage)
	rateLimited := IsRateLimited(err)

	var tokenLimit *TokenLimitError
	exhaustedQuota := errors.As(err, &tokenLimit)
	var cfgErr *ConfigurationError
	misconfigured := errors.As(err, &cfgErr)

	e.mu.Lock()
	h := e.health[name]
	h.Failures++
	h.LastError = msg
	h.LastErrorAt = now
	var cooldown time.Duration
	switch {
	case exhaustedQuota, misconfigured:
		h.Available = false
	case rateLimited:
		h.RateLimitStreak++
		cooldown = e.cfg.Cooldown.Delay(h.RateLimitStreak)
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > cooldown {
			cooldown = rl.RetryAfter
		}
		h.CooldownUntil = now.Add(cooldown)
	}
	e.mu.Unlock()

	outcome := "failure"
	if rateLimited {
		outcome = "rate_limited"
	}
	metrics.ProviderCalls.WithLabelValues(name, outcome).Inc()

	e.logger.Warn().
		Str("provider", name).
		Bool("rate_limited", rateLimited).
		Bool("token_limit", exhaustedQuota).
		Dur("cooldown", cooldown).
		Msg(msg)

	e.emit(models.EventProviderFailure, msg, map[string]any{
		"provider":     name,
		"rate_limited": rateLimited,
		"token_limit":  exhaustedQuota,
	})

	return Failure{Provider: name, Message: msg, At: now, RateLimited: rateLimited}
}

// Status returns a snapshot of every provider's health in registration order.
func (e *Engine) Status() []Health {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Health, 0, len(e.order))
	for _, name := range e.order {
		h := *e.health[name]
		h.Models = append([]string(nil), h.Models...)
		out = append(out, h)
	}
	return out
}

// Reset clears cooldown and unavailability for a provider.
func (e *Engine) Reset(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.health[name]
	if !ok {
		return fmt.Errorf("unknown provider %q", name)
	}
	h.Available = true
	h.CooldownUntil = time.Time{}
	h.RateLimitStreak = 0
	h.LastError = ""
	return nil
}

// Names returns provider names in registration order.
func (e *Engine) Names() []string {
	return append([]string(nil), e.order...)
}

func (e *Engine) emit(t models.EventType, msg string, data map[string]any) {
	e.emitter.Emit(models.Event{
		Type:    t,
		Agent:   agentName,
		Risk:    models.RiskLow,
		Message: msg,
		Data:    data,
	})
}
