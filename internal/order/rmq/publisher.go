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

// PublishOrderStatus publishes an order status change on the order
// topic exchange with routing key order.status.<new_status>.
func (c *Client) PublishOrderStatus(ctx context.Context, msg rmq.OrderStatusMessage) error {
	if msg.CorrelationID == "" {
		msg.CorrelationID = msg.OrderID
	}

	body, err := json.Marshal(msg)
	if err != nil {
		logger.Error("publish_order_status", "failed to marshal order status message", msg.CorrelationID, msg.OrderID, err.Error())
		return fmt.Errorf("failed to marshal order status message: %w", err)
	}

	routingKey := fmt.Sprintf("order.status.%s", strings.ToLower(msg.NewStatus))

	if err := c.Channel.ExchangeDeclare(
		c.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		logger.Error("publish_order_status", "failed to declare exchange", msg.CorrelationID, msg.OrderID, err.Error())
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
		logger.Error("publish_order_status", "failed to publish order status", msg.CorrelationID, msg.OrderID, err.Error())
		return fmt.Errorf("failed to publish order status: %w", err)
	}

	logger.Debug("publish_order_status", "order status published", msg.CorrelationID, msg.OrderID)
	return nil
}
