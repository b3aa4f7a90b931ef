package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psds-microservice/delivery-service/internal/logger"
	"github.com/psds-microservice/delivery-service/internal/model"
)

func TestNewProducer_DisabledWithoutBrokers(t *testing.T) {
	p := NewProducer(nil, "topic", logger.Discard())
	assert.False(t, p.Enabled())
	// no-op, must not panic
	p.ProduceTicketEvent(context.Background(), EventTicketCreated, map[string]interface{}{"ticket_id": "1"})
	assert.NoError(t, p.Close())

	p = NewProducer([]string{"localhost:9092"}, "", logger.Discard())
	assert.False(t, p.Enabled())
}

func TestNewProducer_Enabled(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "delivery.tickets", logger.Discard())
	assert.True(t, p.Enabled())
	assert.NoError(t, p.Close())
}

func TestEventMessage(t *testing.T) {
	tk := &model.Ticket{ID: "abc", CustomerName: "Alice", Email: "a@example.com", Description: "lost"}

	body, err := eventMessage(EventTicketUpdated, TicketPayload(tk))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "ticket.updated", got["event"])
	assert.Equal(t, "abc", got["ticket_id"])
	assert.Equal(t, "Alice", got["customer_name"])
	assert.Equal(t, "", got["phone"])
}

func TestTicketPayload_Nil(t *testing.T) {
	assert.Nil(t, TicketPayload(nil))
}
