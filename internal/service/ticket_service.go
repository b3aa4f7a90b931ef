package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/psds-microservice/delivery-service/internal/errs"
	"github.com/psds-microservice/delivery-service/internal/kafka"
	"github.com/psds-microservice/delivery-service/internal/model"
	"github.com/psds-microservice/delivery-service/internal/photo"
	"github.com/psds-microservice/delivery-service/internal/store"
	"github.com/psds-microservice/delivery-service/internal/validation"
)

// PhotoStore is the subset of photo.Store the service needs.
type PhotoStore interface {
	Save(name string, r io.Reader) (photo.Photo, error)
	Remove(storedPath string) error
}

// TicketServicer is what the page handlers depend on.
type TicketServicer interface {
	Create(ctx context.Context, in Input) (*model.Ticket, error)
	Update(ctx context.Context, id string, in Input) (*model.Ticket, error)
	Get(ctx context.Context, id string) (*model.Ticket, error)
	List(ctx context.Context) ([]model.Ticket, error)
	Delete(ctx context.Context, id string) error
}

// Upload is an attached photo. Body is read once.
type Upload struct {
	Name string
	Body io.Reader
}

// Input is a customer or admin submission as it arrived from the form.
type Input struct {
	CustomerName string
	Email        string
	Phone        string
	Description  string
	Photo        *Upload
}

func (in Input) submission() validation.Submission {
	s := validation.Submission{
		CustomerName: in.CustomerName,
		Email:        in.Email,
		Phone:        in.Phone,
		Description:  in.Description,
	}
	if in.Photo != nil {
		s.PhotoName = in.Photo.Name
	}
	return s
}

type TicketService struct {
	store  store.Gateway
	photos PhotoStore
	events kafka.TicketEventProducer
	log    *slog.Logger
}

// NewTicketService wires the lifecycle. events may be nil.
func NewTicketService(gw store.Gateway, photos PhotoStore, events kafka.TicketEventProducer, log *slog.Logger) *TicketService {
	return &TicketService{store: gw, photos: photos, events: events, log: log}
}

// Create validates, stores the photo, then persists the ticket. Rejections
// come back as validation.Errors. A failed insert removes the saved photo.
func (s *TicketService) Create(ctx context.Context, in Input) (*model.Ticket, error) {
	if findings := validation.ValidateCreate(in.submission()); len(findings) > 0 {
		return nil, findings
	}

	t := &model.Ticket{
		CustomerName: in.CustomerName,
		Email:        in.Email,
		Phone:        in.Phone,
		Description:  in.Description,
	}
	if in.Photo != nil {
		p, err := s.photos.Save(in.Photo.Name, in.Photo.Body)
		if err != nil {
			return nil, fmt.Errorf("save photo: %w", err)
		}
		t.PhotoName, t.PhotoPath = p.Name, p.Path
	}

	if err := s.store.CreateTicket(ctx, t); err != nil {
		s.discardPhoto(t.PhotoPath)
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	s.log.Info("ticket created", "ticket_id", t.ID, "photo", t.PhotoPath)
	s.publish(kafka.EventTicketCreated, t)
	return t, nil
}

// Update applies an admin edit. The previous photo directory is removed only
// after the record points at the new one.
func (s *TicketService) Update(ctx context.Context, id string, in Input) (*model.Ticket, error) {
	if findings := validation.ValidateUpdate(in.submission()); len(findings) > 0 {
		return nil, findings
	}

	current, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	u := store.TicketUpdate{
		CustomerName: in.CustomerName,
		Email:        in.Email,
		Phone:        in.Phone,
		Description:  in.Description,
	}
	if in.Photo != nil {
		p, err := s.photos.Save(in.Photo.Name, in.Photo.Body)
		if err != nil {
			return nil, fmt.Errorf("save photo: %w", err)
		}
		u.PhotoName, u.PhotoPath = p.Name, p.Path
	}

	if err := s.store.UpdateTicket(ctx, id, u); err != nil {
		s.discardPhoto(u.PhotoPath)
		if errors.Is(err, errs.ErrTicketNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update ticket: %w", err)
	}

	if u.PhotoPath != "" && current.PhotoPath != "" && !photo.SameDir(current.PhotoPath, u.PhotoPath) {
		s.discardPhoto(current.PhotoPath)
	}

	updated := *current
	updated.CustomerName = u.CustomerName
	updated.Email = u.Email
	updated.Phone = u.Phone
	updated.Description = u.Description
	if u.PhotoPath != "" {
		updated.PhotoName, updated.PhotoPath = u.PhotoName, u.PhotoPath
	}
	s.log.Info("ticket updated", "ticket_id", id, "photo_replaced", in.Photo != nil)
	s.publish(kafka.EventTicketUpdated, &updated)
	return &updated, nil
}

func (s *TicketService) Get(ctx context.Context, id string) (*model.Ticket, error) {
	return s.store.GetTicket(ctx, id)
}

func (s *TicketService) List(ctx context.Context) ([]model.Ticket, error) {
	return s.store.ListTickets(ctx)
}

// Delete removes the ticket and its photo directory. Unknown ids succeed.
func (s *TicketService) Delete(ctx context.Context, id string) error {
	t, err := s.store.GetTicket(ctx, id)
	switch {
	case errors.Is(err, errs.ErrTicketNotFound):
		t = nil
	case err != nil:
		return err
	}

	if t != nil && t.PhotoPath != "" {
		if err := s.photos.Remove(t.PhotoPath); err != nil {
			return fmt.Errorf("remove photo: %w", err)
		}
	}
	if err := s.store.DeleteTicket(ctx, id); err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	if t != nil {
		s.log.Info("ticket deleted", "ticket_id", id)
		s.publish(kafka.EventTicketDeleted, t)
	}
	return nil
}

func (s *TicketService) discardPhoto(path string) {
	if path == "" {
		return
	}
	if err := s.photos.Remove(path); err != nil {
		s.log.Warn("orphaned photo left behind", "path", path, "error", err)
	}
}

// publish is fire-and-forget: the event should go out even if the request is
// cancelled, but with its own timeout.
func (s *TicketService) publish(event string, t *model.Ticket) {
	if s.events == nil {
		return
	}
	payload := kafka.TicketPayload(t)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.events.ProduceTicketEvent(ctx, event, payload)
	}()
}
