package rmq

import (
	"context"
	"encoding/json"
	"fmt"

	"chakula-delivery/internal/common/logger"
	"chakula-delivery/internal/common/rmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublishLocation fans a location update out to every bound consumer.
// Location traffic is high-frequency and all listeners want all of it,
// hence a fanout exchange instead of the status topics.
func (c *Client) PublishLocation(ctx context.Context, msg rmq.LocationUpdateMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		logger.Error("publish_location", "failed to marshal location message", "", msg.OrderID, err.Error())
		return fmt.Errorf("failed to marshal location message: %w", err)
	}

	if err := c.Channel.ExchangeDeclare(
		c.Exchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		logger.Error("publish_location", "failed to declare exchange", "", msg.OrderID, err.Error())
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := c.Channel.PublishWithContext(
		ctx,
		c.Exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		logger.Error("publish_location", "failed to publish location", "", msg.OrderID, err.Error())
		return fmt.Errorf("failed to publish location: %w", err)
	}

	return nil
}
