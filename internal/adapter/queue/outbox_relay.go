package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/lavanya11112/SEPROJECT/internal/logging"
	"github.com/lavanya11112/SEPROJECT/internal/observ"
	"github.com/lavanya11112/SEPROJECT/internal/usecase"
)

type RawPublisher interface {
	PublishRaw(ctx context.Context, routingKey string, body []byte) error
}

type RelayOptions struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Backoff    time.Duration // multiplied by the retry count
}

// OutboxRelay moves committed outbox rows onto the broker. It assumes a single
// running instance; two relays would publish the same row twice.
type OutboxRelay struct {
	repo usecase.OutboxRepo
	pub  RawPublisher
	opts RelayOptions
	log  *slog.Logger
	now  func() time.Time
}

func NewOutboxRelay(repo usecase.OutboxRepo, pub RawPublisher, opts RelayOptions) *OutboxRelay {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 10
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 30 * time.Second
	}
	return &OutboxRelay{repo: repo, pub: pub, opts: opts, log: logging.New("outbox-relay"), now: time.Now}
}

// Run polls until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	t := time.NewTicker(r.opts.Interval)
	defer t.Stop()
	r.log.Info("outbox relay started", "interval", r.opts.Interval)
	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.log.Error("outbox relay pass failed", "err", err)
		}
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return
		case <-t.C:
		}
	}
}

// RunOnce publishes one batch and reports how many rows were sent.
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	msgs, err := r.repo.FetchDue(ctx, r.opts.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range msgs {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		log := r.log.With("outbox_id", m.ID, "channel", m.Channel)

		if perr := r.pub.PublishRaw(ctx, m.Channel, m.Payload); perr != nil {
			retries := m.RetryCount + 1
			dead := retries >= r.opts.MaxRetries
			next := r.now().UTC().Add(time.Duration(retries) * r.opts.Backoff)
			if err := r.repo.MarkRetry(ctx, m.ID, retries, next, dead); err != nil {
				return sent, err
			}
			if dead {
				observ.OutboxPublished.WithLabelValues(m.Channel, "dead").Inc()
				log.Error("outbox message dead", "retries", retries, "err", perr)
			} else {
				observ.OutboxPublished.WithLabelValues(m.Channel, "retry").Inc()
				log.Warn("outbox publish failed", "retries", retries, "next_attempt_at", next, "err", perr)
			}
			continue
		}

		// Published but not marked: the row is sent again next pass.
		if err := r.repo.MarkSent(ctx, m.ID); err != nil {
			return sent, err
		}
		observ.OutboxPublished.WithLabelValues(m.Channel, "sent").Inc()
		sent++
	}
	return sent, nil
}
