package broker

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const contentTypeJSON = "application/json"

var _ Dialer = (*AMQPDialer)(nil)

// AMQPDialer dials RabbitMQ with PLAIN credentials.
type AMQPDialer struct{}

func NewAMQPDialer() *AMQPDialer {
	return &AMQPDialer{}
}

func (d *AMQPDialer) Dial(ctx context.Context, p Params) (Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	vhost := p.VHost
	if vhost == "" {
		vhost = "/"
	}

	uri := amqp.URI{
		Scheme:   "amqp",
		Host:     p.Host,
		Port:     p.Port,
		Username: p.User,
		Password: p.Password,
		Vhost:    vhost,
	}

	conn, err := amqp.DialConfig(uri.String(), amqp.Config{
		Vhost: vhost,
		SASL:  []amqp.Authentication{&amqp.PlainAuth{Username: p.User, Password: p.Password}},
		Dial:  amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, &ConnectionError{Addr: p.Addr(), Err: err}
	}
	return &amqpConnection{conn: conn, addr: p.Addr()}, nil
}

type amqpConnection struct {
	conn *amqp.Connection
	addr string
}

// Channel reports a ConnectionError when the connection was closed
// underneath it; any other failure is returned as is.
func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			return nil, &ConnectionError{Addr: c.addr, Err: err}
		}
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &amqpChannel{ch: ch}, nil
}

func (c *amqpConnection) Close() error {
	return c.conn.Close()
}

type amqpChannel struct {
	ch *amqp.Channel
}

func (c *amqpChannel) DeclareQueue(name string) error {
	_, err := c.ch.QueueDeclare(name, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

func (c *amqpChannel) Publish(ctx context.Context, queue string, body []byte) error {
	err := c.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType: contentTypeJSON,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

func (c *amqpChannel) Close() error {
	return c.ch.Close()
}
