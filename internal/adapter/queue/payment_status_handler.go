package queue

import (
	"github.com/lavanya11112/SEPROJECT/internal/usecase"
)

// NewPaymentStatusHandler feeds payment.status_changed events into the status
// cache projector.
func NewPaymentStatusHandler(p *usecase.PaymentStatusProjector) Handler {
	return JSONHandler[usecase.PaymentStatusChangedMsg]{HandleFunc: p.Apply}
}
