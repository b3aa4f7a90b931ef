package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/delivery-service/internal/application"
	"github.com/psds-microservice/delivery-service/internal/kafka"
)

var replayEventsCmd = &cobra.Command{
	Use:   "replay-events",
	Short: "Publish a ticket.snapshot event for every stored ticket to Kafka",
	RunE:  runReplayEvents,
}

func runReplayEvents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket, slog.Default())
	if !producer.Enabled() {
		return errors.New("replay-events: KAFKA_BROKERS and KAFKA_TOPIC_TICKET must be set")
	}
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	gw, closeStore, err := application.OpenStore(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer closeStore()

	tickets, err := gw.ListTickets(ctx)
	if err != nil {
		return fmt.Errorf("list tickets: %w", err)
	}
	slog.Info("replay-events: found tickets", "count", len(tickets))

	for i := range tickets {
		producer.ProduceTicketEvent(ctx, kafka.EventTicketSnapshot, kafka.TicketPayload(&tickets[i]))
		if (i+1)%50 == 0 || i == len(tickets)-1 {
			slog.Info("replay-events: progress", "sent", i+1, "total", len(tickets))
		}
	}
	slog.Info("replay-events: done", "topic", cfg.KafkaTopicTicket)
	return nil
}
