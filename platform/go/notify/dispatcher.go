package notify

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// DispatcherConfig tunes outbox draining.
type DispatcherConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	// Lease hides claimed messages from other dispatchers while they are in flight.
	Lease time.Duration
	// RetryBase and RetryMax bound the persisted delay between delivery rounds.
	RetryBase time.Duration
	RetryMax  time.Duration
	// InProcessRetries is the number of extra attempts made inside one round
	// before the message is handed back to the outbox. Zero selects the
	// default; a negative value disables in-round retries.
	InProcessRetries int
	// RetryInterval is the first wait between in-round attempts.
	RetryInterval time.Duration
	Clock         func() time.Time
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.Lease <= 0 {
		c.Lease = time.Minute
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 30 * time.Second
	}
	if c.RetryMax <= 0 {
		c.RetryMax = time.Hour
	}
	switch {
	case c.InProcessRetries == 0:
		c.InProcessRetries = 2
	case c.InProcessRetries < 0:
		c.InProcessRetries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 200 * time.Millisecond
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// Dispatcher drains an Outbox into a Sender.
type Dispatcher struct {
	outbox  Outbox
	sender  Sender
	logger  *zap.Logger
	metrics *Metrics
	cfg     DispatcherConfig
}

// NewDispatcher wires a Dispatcher. metrics may be nil.
func NewDispatcher(outbox Outbox, sender Sender, logger *zap.Logger, metrics *Metrics, cfg DispatcherConfig) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		outbox:  outbox,
		sender:  Instrument(sender, metrics),
		logger:  logger.With(zap.String("component", "notify-dispatcher")),
		metrics: metrics,
		cfg:     cfg.withDefaults(),
	}
}

// Run drains the outbox every Interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("dispatch notifications", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchOnce claims one batch and attempts to deliver every message in it.
// It returns the number of messages delivered.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	messages, err := d.outbox.Claim(ctx, d.cfg.BatchSize, d.cfg.Clock(), d.cfg.Lease)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if d.deliver(ctx, msg) {
			delivered++
		}
	}
	return delivered, nil
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) bool {
	logger := d.logger.With(
		zap.String("notification_id", msg.ID.String()),
		zap.String("topic", string(msg.Topic)),
		zap.String("request_id", msg.RequestID),
	)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.cfg.RetryInterval
	policy.MaxInterval = 10 * d.cfg.RetryInterval

	err := backoff.RetryNotify(
		func() error {
			if err := d.sender.Send(ctx, msg); err != nil {
				if permanent(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			return nil
		},
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(d.cfg.InProcessRetries)), ctx),
		func(err error, wait time.Duration) {
			logger.Debug("retrying notification", zap.Error(err), zap.Duration("wait", wait))
		},
	)

	if err == nil {
		d.metrics.delivered(msg.Topic)
		if markErr := d.outbox.MarkDelivered(ctx, msg.ID, d.cfg.Clock()); markErr != nil {
			logger.Error("mark notification delivered", zap.Error(markErr))
			return false
		}
		logger.Debug("notification delivered")
		return true
	}

	attempts := msg.Attempts + 1
	dead := attempts >= d.cfg.MaxAttempts || permanent(err)

	failure := Failure{
		Attempts:      attempts,
		NextAttemptAt: d.cfg.Clock().Add(d.retryDelay(attempts)),
		LastError:     err.Error(),
		Dead:          dead,
	}
	if markErr := d.outbox.MarkFailed(ctx, msg.ID, failure); markErr != nil {
		logger.Error("mark notification failed", zap.Error(markErr))
	}
	d.metrics.failed(msg.Topic, dead)

	if dead {
		logger.Error("notification abandoned", zap.Int("attempts", attempts), zap.Error(err))
	} else {
		logger.Warn("notification delivery failed",
			zap.Int("attempts", attempts),
			zap.Time("next_attempt_at", failure.NextAttemptAt),
			zap.Error(err),
		)
	}
	return false
}

// permanent reports whether retrying err can never succeed.
func permanent(err error) bool {
	if errors.Is(err, ErrNoEndpoint) {
		return true
	}
	var statusErr *StatusError
	return errors.As(err, &statusErr) && !statusErr.Retryable()
}

// retryDelay doubles RetryBase per failed round, capped at RetryMax.
func (d *Dispatcher) retryDelay(attempts int) time.Duration {
	delay := d.cfg.RetryBase
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= d.cfg.RetryMax {
			return d.cfg.RetryMax
		}
	}
	return delay
}

// Instrument wraps sender so every call is counted and timed.
func Instrument(sender Sender, metrics *Metrics) Sender {
	if metrics == nil {
		return sender
	}
	return SenderFunc(func(ctx context.Context, msg Message) error {
		start := time.Now()
		err := sender.Send(ctx, msg)
		metrics.observeAttempt(msg.Topic, time.Since(start).Seconds())
		return err
	})
}
