package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Breaker stops the email worker from hammering an SMTP relay that is down.
// Only errors its classifier counts move it toward open; a rejected recipient
// says nothing about whether the relay is reachable.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	counts func(error) bool
	now    func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	passed   int
	openedAt time.Time
	probing  bool
}

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// String is what /health reports.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrBreakerOpen is returned by Do without calling fn.
var ErrBreakerOpen = errors.New("smtp breaker is open")

// BreakerConfig tunes a Breaker. Zero values take the SMTP defaults.
type BreakerConfig struct {
	// FailureThreshold consecutive counted failures open the breaker.
	FailureThreshold int
	// SuccessThreshold successful trial calls close it again.
	SuccessThreshold int
	// Cooldown is how long it stays open before a trial call is let through.
	Cooldown time.Duration
	// Counts reports whether err says the downstream is unhealthy.
	// Nil counts every error.
	Counts func(error) bool
}

// SMTPBreakerConfig is the breaker the email worker and retry scheduler share.
func SMTPBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         time.Minute,
		Counts:           IsTransientMailError,
	}
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	def := SMTPBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	counts := cfg.Counts
	if counts == nil {
		counts = func(error) bool { return true }
	}
	return &Breaker{name: name, cfg: cfg, counts: counts, now: time.Now}
}

// State reports the current state; an open breaker whose cooldown has
// passed reads as half-open.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

// Do runs fn unless the breaker is open. While half-open a single trial call
// is in flight at a time; concurrent callers get ErrBreakerOpen.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	b.refresh()
	switch {
	case b.state == BreakerOpen:
		b.mu.Unlock()
		return ErrBreakerOpen
	case b.state == BreakerHalfOpen && b.probing:
		b.mu.Unlock()
		return ErrBreakerOpen
	case b.state == BreakerHalfOpen:
		b.probing = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	switch {
	case err == nil:
		b.succeeded()
	case b.counts(err):
		b.failed()
	}
	return err
}

// refresh must be called with mu held.
func (b *Breaker) refresh() {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.moveTo(BreakerHalfOpen)
	}
}

func (b *Breaker) succeeded() {
	b.failures = 0
	if b.state != BreakerHalfOpen {
		return
	}
	b.passed++
	if b.passed >= b.cfg.SuccessThreshold {
		b.moveTo(BreakerClosed)
	}
}

func (b *Breaker) failed() {
	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.openedAt = b.now()
		b.moveTo(BreakerOpen)
	}
}

func (b *Breaker) moveTo(next BreakerState) {
	if b.state == next {
		return
	}
	log.Warn().
		Str("breaker", b.name).
		Str("from", b.state.String()).
		Str("to", next.String()).
		Int("failures", b.failures).
		Msg("breaker state changed")
	b.state = next
	b.failures = 0
	b.passed = 0
}
