// Package store is the persistence gateway for delivery tickets and admin
// credentials. Two backends implement Gateway: SQLGateway (gorm) and
// MongoGateway.
package store

import (
	"context"

	"github.com/psds-microservice/delivery-service/internal/model"
)

// Gateway is what the rest of the service knows about persistence.
// GetTicket and UpdateTicket report a missing record as errs.ErrTicketNotFound.
type Gateway interface {
	CreateTicket(ctx context.Context, t *model.Ticket) error
	ListTickets(ctx context.Context) ([]model.Ticket, error)
	GetTicket(ctx context.Context, id string) (*model.Ticket, error)
	UpdateTicket(ctx context.Context, id string, u TicketUpdate) error
	DeleteTicket(ctx context.Context, id string) error
	Authenticate(ctx context.Context, username, password string) (bool, error)
	SaveAdmin(ctx context.Context, cred model.AdminCredential) error
	Ping(ctx context.Context) error
}

// TicketUpdate carries an admin edit. Photo fields are applied only when both
// are set.
type TicketUpdate struct {
	CustomerName string
	Email        string
	Phone        string
	Description  string
	PhotoName    string
	PhotoPath    string
}

func (u TicketUpdate) replacesPhoto() bool {
	return u.PhotoName != "" && u.PhotoPath != ""
}

var (
	_ Gateway = (*SQLGateway)(nil)
	_ Gateway = (*MongoGateway)(nil)
)
