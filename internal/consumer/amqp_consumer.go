package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/giobyte8/picturefill/internal/models"
)

// Holds the config params for the consumer
type AMQPConfig struct {
	AMQPUri  string
	Exchange string

	RunRequestsQueueName string
}

type AMQPConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  AMQPConfig
	handler *RunRequestHandler
}

// Creates a new AMQPConsumer instance ready to connect to broker
func NewAMQPConsumer(
	config AMQPConfig,
	handler *RunRequestHandler,
) (*AMQPConsumer, error) {

	if config.AMQPUri == "" {
		return nil, fmt.Errorf("AMQP URI cannot be empty in config")
	}
	if config.Exchange == "" {
		return nil, fmt.Errorf("AMQP exchange cannot be empty in config")
	}
	if config.RunRequestsQueueName == "" {
		return nil, fmt.Errorf(
			"AMQP run requests queue name cannot be empty in config",
		)
	}

	return &AMQPConsumer{
		config:  config,
		handler: handler,
	}, nil
}

// Connects to AMQP broker, declares exchange and queue and
// starts consuming messages
func (c *AMQPConsumer) Start(ctx context.Context) error {
	slog.Debug("AMQP - Initializing AMQP Consumer")

	var err error
	c.conn, err = amqp.Dial(c.config.AMQPUri)
	if err != nil {
		return fmt.Errorf("AMQP - Connection to broker failed: %w", err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("AMQP - Failed to open channel: %w", err)
	}

	err = c.channel.ExchangeDeclare(
		c.config.Exchange,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("AMQP - Failed to declare exchange: %w", err)
	}

	queueName := c.config.RunRequestsQueueName
	_, err = c.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err == nil {
		err = c.channel.QueueBind(
			queueName,         // Queue
			queueName,         // Routing key
			c.config.Exchange, // Exchange
			false,             // No-wait
			nil,               // Arguments
		)
	}
	if err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf(
			"AMQP - Failed to declare/bind run requests queue: %w",
			err,
		)
	}

	// One run at a time, runs already fan out internally
	if err := c.channel.Qos(1, 0, false); err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("AMQP - Failed to set channel QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		queueName,
		"picturefill-run", // Consumer tag
		false,             // Auto-acknowledge
		false,             // Exclusive
		false,             // No-local
		false,             // No-wait
		nil,               // Arguments
	)
	if err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf(
			"AMQP - Failed to create run requests queue consumer: %w",
			err,
		)
	}

	go c.consumeRunRequests(ctx, msgs)
	return nil
}

// Gracefully stops the AMQP consumer
func (c *AMQPConsumer) Stop() {
	slog.Info("AMQP - Stopping AMQP Consumer...")

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			slog.Error("AMQP - Failed to close channel", "error", err)
		} else {
			slog.Debug("AMQP - Channel closed")
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			slog.Error("AMQP - Failed to close connection", "error", err)
		} else {
			slog.Debug("AMQP - Connection closed")
		}
	}

	slog.Info("AMQP - AMQP Consumer stopped")
}

func (c *AMQPConsumer) consumeRunRequests(
	ctx context.Context,
	msgs <-chan amqp.Delivery,
) {
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				slog.Info(
					"AMQP - Run requests channel closed. goroutine exiting",
				)
				return
			}

			// Failed runs are not retried: nack without requeue
			if err := c.handler.Handle(ctx, msg.Body); err != nil {
				slog.Error(
					"AMQP - Failed to process run request",
					"error",
					err,
					"message",
					string(msg.Body),
				)

				if nackErr := msg.Nack(false, false); nackErr != nil {
					slog.Error(
						"AMQP - Failed to nack run request message",
						"error",
						nackErr,
					)
				}
				continue
			}

			// Acknowledge the message
			if err := msg.Ack(false); err != nil {
				slog.Error(
					"AMQP - Failed to acknowledge run request message",
					"error",
					err,
				)
			}

		case <-ctx.Done():
			slog.Info(
				"AMQP - Context done signal received, " +
					"stopping run requests consumption goroutine...",
			)
			return
		}
	}
}

// decodeRunRequest parses an AMQP message body.
func decodeRunRequest(body []byte) (models.RunRequest, error) {
	var req models.RunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("failed to unmarshal run request: %w", err)
	}
	if req.Target == "" {
		return req, fmt.Errorf("run request has no target")
	}
	return req, nil
}
