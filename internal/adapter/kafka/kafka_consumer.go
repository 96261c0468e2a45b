package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/lavanya11112/SEPROJECT/internal/logging"
	"github.com/lavanya11112/SEPROJECT/internal/usecase"
)

// HandlerFunc processes a decoded event.
type HandlerFunc func(ctx context.Context, ev usecase.FulfillmentStatusMsg) error

// Consumer consumes a topic with a single handler.
type Consumer struct {
	Group   sarama.ConsumerGroup
	Topics  []string
	Handle  HandlerFunc
	Logger  *slog.Logger
	Backoff time.Duration // pause before rejoining after a failed session
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{
		Group:   group,
		Topics:  topics,
		Handle:  h,
		Logger:  logging.New("kafka-consumer"),
		Backoff: time.Second,
	}
}

// Start blocks until ctx is cancelled or the group fails to join.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &cgHandler{handle: c.Handle, log: c.Logger}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// When Consume returns, it’s because ctx was cancelled or a rebalance happened.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.Backoff):
		}
	}
}

type cgHandler struct {
	handle HandlerFunc
	log    *slog.Logger
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks messages that can never succeed. On any other handler
// error it stops the claim without marking, so the session restarts from the
// last committed offset and the message is redelivered.
func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		log := h.log.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))

		var ev usecase.FulfillmentStatusMsg
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Error("kafka decode error", "err", err)
			// mark to avoid reprocessing poison
			sess.MarkMessage(msg, "decode-error")
			continue
		}

		ctx := logging.WithCtx(sess.Context(), log)
		if err := h.handle(ctx, ev); err != nil {
			if errors.Is(err, domain.ErrValidation) {
				log.Error("fulfillment event rejected", "order_id", ev.OrderID, "status", ev.Status, "err", err)
				sess.MarkMessage(msg, "invalid")
				continue
			}
			log.Warn("handler error, will redeliver", "order_id", ev.OrderID, "err", err)
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
