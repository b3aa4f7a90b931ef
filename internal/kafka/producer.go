package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/psds-microservice/delivery-service/internal/model"
)

const (
	EventTicketCreated  = "ticket.created"
	EventTicketUpdated  = "ticket.updated"
	EventTicketDeleted  = "ticket.deleted"
	EventTicketSnapshot = "ticket.snapshot"
)

// TicketEventProducer sends ticket lifecycle events.
type TicketEventProducer interface {
	ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{})
}

// Producer writes ticket events to a Kafka topic, best-effort.
type Producer struct {
	writer *kafka.Writer
	topic  string
	log    *slog.Logger
}

// NewProducer builds a producer. Without brokers or topic every method is a no-op.
func NewProducer(brokers []string, topic string, log *slog.Logger) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{log: log}
	}
	return &Producer{
		topic: topic,
		log:   log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Enabled() bool {
	return p.writer != nil
}

// ProduceTicketEvent sends {"event": event, ...payload} keyed by ticket_id so
// events for one ticket stay ordered within a partition.
func (p *Producer) ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{}) {
	if p.writer == nil {
		return
	}
	body, err := eventMessage(event, payload)
	if err != nil {
		p.log.Error("kafka: marshal ticket event", "event", event, "error", err)
		return
	}
	key, _ := payload["ticket_id"].(string)
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body}); err != nil {
		p.log.Warn("kafka: write ticket event", "event", event, "error", err)
	}
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func eventMessage(event string, payload map[string]interface{}) ([]byte, error) {
	msg := map[string]interface{}{"event": event}
	for k, v := range payload {
		msg[k] = v
	}
	return json.Marshal(msg)
}

// TicketPayload is the event body shared by every ticket event.
func TicketPayload(t *model.Ticket) map[string]interface{} {
	if t == nil {
		return nil
	}
	return map[string]interface{}{
		"ticket_id":     t.ID,
		"customer_name": t.CustomerName,
		"email":         t.Email,
		"phone":         t.Phone,
		"photo_path":    t.PhotoPath,
		"description":   t.Description,
	}
}
