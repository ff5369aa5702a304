package infra

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"testing"
	"time"

	"pickupshop/internal/config"
	"pickupshop/internal/dto"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg BreakerConfig) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	b := NewBreaker("test", cfg)
	b.now = clock.now
	return b, clock
}

func fail() error { return errBoom }
func pass() error { return nil }

func TestBreaker_Transitions(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{FailureThreshold: 2, SuccessThreshold: 2, Cooldown: time.Minute})
	assert.Equal(t, BreakerClosed, b.State())

	assert.ErrorIs(t, b.Do(fail), errBoom)
	assert.Equal(t, BreakerClosed, b.State())
	assert.ErrorIs(t, b.Do(fail), errBoom)
	assert.Equal(t, BreakerOpen, b.State())

	called := false
	assert.ErrorIs(t, b.Do(func() error { called = true; return nil }), ErrBreakerOpen)
	assert.False(t, called, "an open breaker fails fast")

	clock.advance(59 * time.Second)
	assert.Equal(t, BreakerOpen, b.State())
	clock.advance(time.Second)
	assert.Equal(t, BreakerHalfOpen, b.State())

	require.NoError(t, b.Do(pass))
	assert.Equal(t, BreakerHalfOpen, b.State(), "needs two trial successes")
	require.NoError(t, b.Do(pass))
	assert.Equal(t, "closed", b.State().String())
}

func TestBreaker_SuccessResetsFailureRun(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{FailureThreshold: 2})
	_ = b.Do(fail)
	require.NoError(t, b.Do(pass))
	_ = b.Do(fail)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: time.Second})
	_ = b.Do(fail)
	clock.advance(time.Second)
	require.Equal(t, BreakerHalfOpen, b.State())

	_ = b.Do(fail)
	assert.Equal(t, "open", b.State().String())
	clock.advance(500 * time.Millisecond)
	assert.Equal(t, BreakerOpen, b.State(), "cooldown restarts from the failed trial")
}

func TestBreaker_OneTrialAtATime(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Cooldown: time.Second})
	_ = b.Do(fail)
	clock.advance(time.Second)

	var inner error
	err := b.Do(func() error {
		inner = b.Do(pass)
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrBreakerOpen)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_IgnoresPermanentMailErrors(t *testing.T) {
	rejected := &textproto.Error{Code: 550, Msg: "5.1.1 mailbox unavailable"}
	b, clock := newTestBreaker(BreakerConfig{FailureThreshold: 2, Cooldown: time.Second, Counts: IsTransientMailError})

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, b.Do(func() error { return rejected }), rejected)
		assert.ErrorIs(t, b.Do(func() error { return ErrMailerNotConfigured }), ErrMailerNotConfigured)
	}
	assert.Equal(t, BreakerClosed, b.State())

	busy := &textproto.Error{Code: 421, Msg: "4.3.2 try again later"}
	_ = b.Do(func() error { return busy })
	_ = b.Do(func() error { return busy })
	require.Equal(t, BreakerOpen, b.State())

	// A rejection during the trial releases it without closing the breaker.
	clock.advance(time.Second)
	_ = b.Do(func() error { return rejected })
	assert.Equal(t, BreakerHalfOpen, b.State())
	require.NoError(t, b.Do(pass))
}

func TestIsTransientMailError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not configured", ErrMailerNotConfigured, false},
		{"bad attachment", fmt.Errorf("%w: attach slip.pdf: short write", ErrMailBuild), false},
		{"mailbox rejected", &textproto.Error{Code: 550, Msg: "no such user"}, false},
		{"wrapped rejection", fmt.Errorf("send: %w", &textproto.Error{Code: 554, Msg: "rejected"}), false},
		{"greylisted", &textproto.Error{Code: 451, Msg: "try later"}, true},
		{"relay unreachable", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransientMailError(tc.err))
		})
	}
}

func TestWriteSlipPDF(t *testing.T) {
	pid := "p1"
	order := &dto.OrderResponse{
		ID:             "3f1c2a9e-8d4b-4c1e-9a7f-0b2d6e5c4a31",
		CustomerName:   "Hana",
		DeliveryMethod: "pickup",
		Status:         "preparing",
		PaymentStatus:  "paid",
		TotalAmount:    decimal.NewFromInt(870),
		Schedule:       &dto.ScheduleResponse{Date: "2026-10-20", PickupStart: "10:00", PickupEnd: "12:00", Location: "Station kiosk", District: "North"},
		Lines: []dto.OrderLineResponse{
			{ProductID: &pid, ProductName: "Strawberry", Quantity: 7, Subtotal: decimal.NewFromInt(690), IsFinish: true},
			{ProductName: "Egg box", ProductDeleted: true, Quantity: 2, Subtotal: decimal.NewFromInt(180)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSlipPDF(&buf, "Pickup Shop", order))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	order.Schedule = nil
	order.DeliveryMethod = "courier"
	buf.Reset()
	require.NoError(t, WriteSlipPDF(&buf, "Pickup Shop", order))
	assert.NotZero(t, buf.Len())
}

func TestShortRef(t *testing.T) {
	assert.Equal(t, "3f1c2a9e", shortRef("3f1c2a9e-8d4b-4c1e-9a7f-0b2d6e5c4a31"))
	assert.Equal(t, "ab", shortRef("ab"))
}

func TestMailer_Unconfigured(t *testing.T) {
	m := NewMailer(&config.Config{SMTPPort: 587})
	assert.False(t, m.Configured())
	err := m.Send("a@example.com", "s", "b", "", nil)
	assert.ErrorIs(t, err, ErrMailerNotConfigured)
	assert.False(t, IsTransientMailError(err))
}
