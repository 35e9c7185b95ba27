// Command dispatcher-service consumes case events, routes new cases to a
// mediation desk and records owner notifications for status changes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"resolveit/pkg/config"
	"resolveit/pkg/logging"
	"resolveit/pkg/queue"
	"resolveit/services/case-service/models"
)

const queueName = "case_dispatch"

func main() {
	logger := logging.SetupDefault("dispatcher-service")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.RabbitMQURL == "" {
		logger.Error("RABBITMQ_URL is required")
		os.Exit(1)
	}

	conn, ch, err := queue.ConnectRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	defer ch.Close()

	msgs, err := queue.ConsumeMessages(ch, queueName, models.EventCaseRegistered, models.EventCaseUpdated)
	if err != nil {
		logger.Error("failed to consume queue", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("waiting for case events", "queue", queueName)
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case d, ok := <-msgs:
			if !ok {
				logger.Error("delivery channel closed")
				return
			}
			dispatch, err := decide(d.Body)
			if err != nil {
				// malformed events are dropped, redelivery would fail the same way
				logger.Warn("discarding case event", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			if dispatch.Desk != "" {
				logger.Info("case routed", "case_id", dispatch.Event.CaseID, "category", dispatch.Event.Category, "desk", dispatch.Desk)
			} else {
				logger.Info("owner notified", "case_id", dispatch.Event.CaseID, "owner_id", dispatch.Notify,
					"field", dispatch.Event.Field, "value", dispatch.Event.Value)
			}
			_ = d.Ack(false)
		}
	}
}
