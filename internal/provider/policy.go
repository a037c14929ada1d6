package provider

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/yungbote/persona-backend/internal/platform/logger"
)

type PolicyConfig struct {
	Timeout time.Duration
	// RatePerSecond <= 0 disables limiting.
	RatePerSecond float64
	Burst         int
	// BreakerFailures consecutive transport failures open the breaker. 0 disables it.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Timeout:         60 * time.Second,
		RatePerSecond:   5,
		Burst:           5,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// Policy is the shared call wrapper one adapter owns. It is safe for concurrent use.
type Policy struct {
	id         ID
	capability Capability
	timeout    time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[any]
	metrics    *Metrics
	log        *logger.Logger
}

func NewPolicy(log *logger.Logger, metrics *Metrics, id ID, capability Capability, cfg PolicyConfig) *Policy {
	if log == nil {
		log = logger.Nop()
	}
	p := &Policy{
		id:         id,
		capability: capability,
		timeout:    cfg.Timeout,
		metrics:    metrics,
		log:        log.With("provider", string(id), "capability", string(capability)),
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	if cfg.BreakerFailures > 0 {
		threshold := cfg.BreakerFailures
		p.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        string(id),
			MaxRequests: 1,
			Timeout:     cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				p.log.Warn("provider breaker state change", "from", from.String(), "to", to.String())
				p.metrics.setBreaker(id, breakerGauge(to))
			},
			// Only transport-level trouble counts against the breaker.
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				switch Classify(err) {
				case KindMalformed, KindAuthFailed:
					return true
				}
				return errors.Is(err, context.Canceled)
			},
		})
	}
	return p
}

func (p *Policy) ID() ID { return p.id }

// BreakerState is "closed", "half-open", "open", or "disabled".
func (p *Policy) BreakerState() string {
	if p == nil || p.breaker == nil {
		return "disabled"
	}
	return p.breaker.State().String()
}

// Call runs fn under p and converts the outcome into a Result. fn is never invoked when
// configured is false. Panics inside fn come back as KindUnknown failures.
func Call[T any](ctx context.Context, p *Policy, configured bool, fn func(ctx context.Context) (T, error)) Result[T] {
	if !configured {
		return Failure[T](p.id, KindUnavailable, "credentials not configured")
	}

	ctx, span := otel.Tracer("persona/provider").Start(ctx, "provider."+string(p.capability))
	span.SetAttributes(
		attribute.String("provider.id", string(p.id)),
		attribute.String("provider.capability", string(p.capability)),
	)
	defer span.End()

	start := time.Now()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	v, err := execute(ctx, p, fn)
	dur := time.Since(start)

	kind := Classify(err)
	if err != nil && kind != KindTimeout && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = KindTimeout
	}
	p.metrics.observe(p.id, p.capability, kind, dur)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		p.log.Warn("provider call failed", "kind", string(kind), "duration_ms", dur.Milliseconds(), "error", err)
		return Failure[T](p.id, kind, truncate(err.Error(), 512))
	}
	p.log.Debug("provider call ok", "duration_ms", dur.Milliseconds())
	return Success(p.id, v)
}

func execute[T any](ctx context.Context, p *Policy, fn func(ctx context.Context) (T, error)) (out T, err error) {
	if p.limiter != nil {
		if werr := p.limiter.Wait(ctx); werr != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			return out, fmt.Errorf("rate limiter: %w", context.DeadlineExceeded)
		}
	}
	guarded := func() (v T, gerr error) {
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("provider adapter panic", "panic", r, "stack", string(debug.Stack()))
				gerr = &panicError{value: r}
			}
		}()
		return fn(ctx)
	}
	if p.breaker == nil {
		return guarded()
	}
	res, err := p.breaker.Execute(func() (any, error) { return guarded() })
	if err != nil {
		return out, err
	}
	v, _ := res.(T)
	return v, nil
}

type panicError struct{ value any }

func (e *panicError) Error() string { return fmt.Sprintf("adapter panic: %v", e.value) }

func breakerGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Ensure returns p, or a default policy for id when p is nil.
func Ensure(p *Policy, id ID, capability Capability) *Policy {
	if p != nil {
		return p
	}
	return NewPolicy(nil, nil, id, capability, DefaultPolicyConfig())
}

// Policies indexes adapter policies by provider id for status reporting.
type Policies map[ID]*Policy

// BreakerState reports "unknown" for ids without a policy.
func (ps Policies) BreakerState(id ID) string {
	p, ok := ps[id]
	if !ok {
		return "unknown"
	}
	return p.BreakerState()
}
