package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/lavanya11112/SEPROJECT/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// consumeChannel is the part of *amqp.Channel the router uses.
type consumeChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

// Router manages multiple consumers (one per registered queue) on a single AMQP channel.
type Router struct {
	ch            consumeChannel
	prefetch      int
	callTimeout   time.Duration
	requeueOnErr  bool
	log           *slog.Logger
	registrations []registration
}

type registration struct {
	queueName   string
	handler     Handler
	consumerTag string
}

// --- Options ---

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }
func WithLogger(l *slog.Logger) RouterOption   { return func(r *Router) { r.log = l } }

// NewRouter constructs a Router. Defaults: prefetch=50, timeout=10s, requeueOnErr=true.
func NewRouter(ch *amqp.Channel, opts ...RouterOption) *Router {
	return newRouter(ch, opts...)
}

func newRouter(ch consumeChannel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		prefetch:     50,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.prefetch <= 0 {
		r.prefetch = 50
	}
	if r.log == nil {
		r.log = logging.New("rmq-router")
	}
	return r
}

// Register associates a queue with a handler. Call multiple times for multiple queues.
func (r *Router) Register(queueName string, h Handler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		handler:     h,
		consumerTag: "c_" + queueName,
	})
}

// Start begins consuming; non-blocking (spawns one goroutine per queue).
// QoS (prefetch) is set per-channel and applies to all consumers on this channel.
// Handlers run under ctx; Stop or a closed channel ends the consumers.
func (r *Router) Start(ctx context.Context) error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}

	for _, reg := range r.registrations {
		deliveries, err := r.ch.Consume(
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return err
		}

		go r.consume(ctx, reg, deliveries)
	}

	return nil
}

func (r *Router) consume(ctx context.Context, reg registration, msgs <-chan amqp.Delivery) {
	log := r.log.With("queue", reg.queueName, "tag", reg.consumerTag)
	for d := range msgs {
		r.dispatch(ctx, log, reg.handler, d)
	}
	log.Info("consumer stopped")
}

// acker is satisfied by amqp.Delivery.
type acker interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (r *Router) dispatch(ctx context.Context, log *slog.Logger, h Handler, d amqp.Delivery) {
	r.settle(log, d, d.RoutingKey, r.handle(ctx, h, d))
}

func (r *Router) handle(ctx context.Context, h Handler, d amqp.Delivery) error {
	hctx, cancel := context.WithTimeout(logging.WithCtx(ctx, r.log), r.callTimeout)
	defer cancel()
	return h.Handle(hctx, d)
}

func (r *Router) settle(log *slog.Logger, a acker, rk string, err error) {
	if err == nil {
		_ = a.Ack(false)
		return
	}
	if permanent(err) {
		log.Error("dropping message", "rk", rk, "err", err)
		_ = a.Nack(false, false)
		return
	}
	log.Warn("handler error", "rk", rk, "err", err, "requeue", r.requeueOnErr)
	_ = a.Nack(false, r.requeueOnErr)
}

// Stop cancels every registered consumer; in-flight deliveries finish first.
func (r *Router) Stop() {
	for _, reg := range r.registrations {
		if err := r.ch.Cancel(reg.consumerTag, false); err != nil {
			r.log.Warn("cancel consumer failed", "tag", reg.consumerTag, "err", err)
		}
	}
}

func permanent(err error) bool {
	return errors.Is(err, ErrPoison) || errors.Is(err, domain.ErrValidation)
}
