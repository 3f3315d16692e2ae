package rmq

import (
	"encoding/json"
	"fmt"

	"chakula-delivery/internal/common/logger"
	"chakula-delivery/internal/common/mq"
	"chakula-delivery/internal/common/rmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Client struct {
	Channel *amqp.Channel
}

func NewClient(rabbit *mq.RabbitMQ) *Client {
	return &Client{Channel: rabbit.Chan}
}

// ConsumeOrderStatus binds a queue to the order topic exchange and
// feeds every status message to the handler.
func (c *Client) ConsumeOrderStatus(queueName string, handler func(msg rmq.OrderStatusMessage)) error {
	deliveries, err := c.consume(queueName, rmq.OrderExchange, "topic", "order.status.*")
	if err != nil {
		return err
	}
	go func() {
		for d := range deliveries {
			var msg rmq.OrderStatusMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				logger.Warn("rmq_unmarshal_failed", "failed to unmarshal order status", "", "", err.Error())
				continue
			}
			handler(msg)
		}
	}()
	return nil
}

func (c *Client) ConsumeDispatchStatus(queueName string, handler func(msg rmq.DispatchStatusMessage)) error {
	deliveries, err := c.consume(queueName, rmq.DispatchExchange, "topic", "dispatch.status.*")
	if err != nil {
		return err
	}
	go func() {
		for d := range deliveries {
			var msg rmq.DispatchStatusMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				logger.Warn("rmq_unmarshal_failed", "failed to unmarshal dispatch status", "", "", err.Error())
				continue
			}
			handler(msg)
		}
	}()
	return nil
}

func (c *Client) ConsumeLocationUpdates(queueName string, handler func(msg rmq.LocationUpdateMessage)) error {
	deliveries, err := c.consume(queueName, rmq.LocationExchange, "fanout", "")
	if err != nil {
		return err
	}
	go func() {
		for d := range deliveries {
			var msg rmq.LocationUpdateMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				logger.Warn("rmq_unmarshal_failed", "failed to unmarshal location update", "", "", err.Error())
				continue
			}
			handler(msg)
		}
	}()
	return nil
}

func (c *Client) consume(queueName, exchange, kind, bindingKey string) (<-chan amqp.Delivery, error) {
	if err := c.Channel.ExchangeDeclare(
		exchange,
		kind,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := c.Channel.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := c.Channel.QueueBind(
		q.Name,
		bindingKey,
		exchange,
		false,
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := c.Channel.Consume(
		q.Name,
		"",
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return deliveries, nil
}
