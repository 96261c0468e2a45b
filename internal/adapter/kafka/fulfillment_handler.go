package kafka

import "github.com/lavanya11112/SEPROJECT/internal/usecase"

// NewFulfillmentHandler applies kitchen/delivery status events to orders.
func NewFulfillmentHandler(uc *usecase.Fulfillment) HandlerFunc {
	return uc.Apply
}
