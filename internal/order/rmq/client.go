package rmq

import (
	"chakula-delivery/internal/common/mq"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Client struct {
	Channel  *amqp.Channel
	Exchange string
}

func NewClient(rabbit *mq.RabbitMQ, exchange string) *Client {
	return &Client{Channel: rabbit.Chan, Exchange: exchange}
}
