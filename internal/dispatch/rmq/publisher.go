package rmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chakula-delivery/internal/common/logger"
	"chakula-delivery/internal/common/rmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublishDispatchStatus publishes a dispatch status change on the
// dispatch topic exchange with routing key
// dispatch.status.<new_status>.
func (c *Client) PublishDispatchStatus(ctx context.Context, msg rmq.DispatchStatusMessage) error {
	if msg.CorrelationID == "" {
		msg.CorrelationID = msg.DispatchID
	}

	body, err := json.Marshal(msg)
	if err != nil {
		logger.Error("publish_dispatch_status", "failed to marshal dispatch status message", msg.CorrelationID, msg.OrderID, err.Error())
		return fmt.Errorf("failed to marshal dispatch status message: %w", err)
	}

	routingKey := fmt.Sprintf("dispatch.status.%s", strings.ToLower(msg.NewStatus))

	if err := c.Channel.ExchangeDeclare(
		c.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		logger.Error("publish_dispatch_status", "failed to declare exchange", msg.CorrelationID, msg.OrderID, err.Error())
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := c.Channel.PublishWithContext(
		ctx,
		c.Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		logger.Error("publish_dispatch_status", "failed to publish dispatch status", msg.CorrelationID, msg.OrderID, err.Error())
		return fmt.Errorf("failed to publish dispatch status: %w", err)
	}

	logger.Debug("publish_dispatch_status", "dispatch status published", msg.CorrelationID, msg.OrderID)
	return nil
}
