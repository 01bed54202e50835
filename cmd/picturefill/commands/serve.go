package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/giobyte8/picturefill/internal/consumer"
)

func (c *CLI) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run targets on request, consuming run requests from AMQP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			taskFile, coordinator, err := c.prepare()
			if err != nil {
				return err
			}

			amqpConsumer, err := consumer.NewAMQPConsumer(
				prepareAMQPConfig(),
				consumer.NewRunRequestHandler(taskFile, coordinator),
			)
			if err != nil {
				return fmt.Errorf("failed to create AMQP consumer: %w", err)
			}

			ctx := cmd.Context()
			if err := amqpConsumer.Start(ctx); err != nil {
				return fmt.Errorf("failed to start AMQP consumer: %w", err)
			}
			slog.Info("picturefill is serving run requests. Press Ctrl+C to stop.")

			<-ctx.Done()
			amqpConsumer.Stop()
			return nil
		},
	}
}

func prepareAMQPUri() string {
	rb_host := os.Getenv("RABBITMQ_HOST")
	rb_port := os.Getenv("RABBITMQ_PORT")
	rb_user := os.Getenv("RABBITMQ_USER")
	rb_pass := os.Getenv("RABBITMQ_PASS")

	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		rb_user,
		rb_pass,
		rb_host,
		rb_port,
	)
}

func prepareAMQPConfig() consumer.AMQPConfig {
	return consumer.AMQPConfig{
		AMQPUri:              prepareAMQPUri(),
		Exchange:             os.Getenv("AMQP_EXCHANGE"),
		RunRequestsQueueName: os.Getenv("AMQP_QUEUE_RUN_REQUESTS"),
	}
}
