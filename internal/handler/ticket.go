package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/delivery-service/internal/errs"
	"github.com/psds-microservice/delivery-service/internal/markdown"
	"github.com/psds-microservice/delivery-service/internal/model"
	"github.com/psds-microservice/delivery-service/internal/service"
	"github.com/psds-microservice/delivery-service/internal/validation"
)

const (
	modeView = "view"
	modeEdit = "edit"
)

type TicketHandler struct {
	svc service.TicketServicer
	md  *markdown.Renderer
	log *slog.Logger
}

func NewTicketHandler(svc service.TicketServicer, md *markdown.Renderer, log *slog.Logger) *TicketHandler {
	return &TicketHandler{svc: svc, md: md, log: log}
}

// ticketForm is what the request and edit pages echo back.
type ticketForm struct {
	ID           string
	CustomerName string
	Email        string
	Phone        string
	Description  string
	PhotoName    string
	PhotoPath    string
}

func formFromTicket(t *model.Ticket) ticketForm {
	return ticketForm{
		ID:           t.ID,
		CustomerName: t.CustomerName,
		Email:        t.Email,
		Phone:        t.Phone,
		Description:  t.Description,
		PhotoName:    t.PhotoName,
		PhotoPath:    t.PhotoPath,
	}
}

func bindTicketForm(c *gin.Context) ticketForm {
	return ticketForm{
		ID:           c.PostForm("deliveryRequestID"),
		CustomerName: c.PostForm("customerName"),
		Email:        c.PostForm("email"),
		Phone:        c.PostForm("phone"),
		Description:  c.PostForm("description"),
		PhotoName:    c.PostForm("photoName"),
		PhotoPath:    c.PostForm("photoPath"),
	}
}

func (h *TicketHandler) RequestForm(c *gin.Context) {
	render(c, http.StatusOK, "request_form.html", "New delivery request", gin.H{"Form": ticketForm{}})
}

func (h *TicketHandler) Submit(c *gin.Context) {
	form := bindTicketForm(c)
	in, done, err := readInput(c, form)
	if err != nil {
		h.fail(c, "read submission", err)
		return
	}
	defer done()

	if _, err := h.svc.Create(c.Request.Context(), in); err != nil {
		var findings validation.Errors
		if errors.As(err, &findings) {
			render(c, http.StatusUnprocessableEntity, "request_form.html", "New delivery request", gin.H{
				"Form":   form,
				"Errors": findings,
			})
			return
		}
		h.fail(c, "create ticket", err)
		return
	}
	render(c, http.StatusOK, "success.html", "Submitted", gin.H{
		"Message": "Your delivery request has been submitted.",
	})
}

func (h *TicketHandler) Dashboard(c *gin.Context) {
	tickets, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list tickets", err)
		return
	}
	render(c, http.StatusOK, "dashboard.html", "Dashboard", gin.H{"Tickets": tickets})
}

func (h *TicketHandler) View(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}
	desc, err := h.md.Render(t.Description)
	if err != nil {
		h.log.Warn("render description", "ticket_id", t.ID, "error", err)
		desc = template.HTML(template.HTMLEscapeString(t.Description))
	}
	render(c, http.StatusOK, "ticket.html", "Delivery request", gin.H{
		"Mode":            modeView,
		"Form":            formFromTicket(t),
		"DescriptionHTML": desc,
	})
}

func (h *TicketHandler) Edit(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, "ticket.html", "Edit delivery request", gin.H{
		"Mode": modeEdit,
		"Form": formFromTicket(t),
	})
}

func (h *TicketHandler) Update(c *gin.Context) {
	form := bindTicketForm(c)
	in, done, err := readInput(c, form)
	if err != nil {
		h.fail(c, "read submission", err)
		return
	}
	defer done()

	_, err = h.svc.Update(c.Request.Context(), form.ID, in)
	var findings validation.Errors
	switch {
	case err == nil:
		render(c, http.StatusOK, "success.html", "Updated", gin.H{
			"Message": "The delivery request has been updated.",
		})
	case errors.As(err, &findings):
		render(c, http.StatusUnprocessableEntity, "ticket.html", "Edit delivery request", gin.H{
			"Mode":   modeEdit,
			"Form":   form,
			"Errors": findings,
		})
	case errors.Is(err, errs.ErrTicketNotFound):
		render(c, http.StatusNotFound, "not_found.html", "Not found", nil)
	default:
		h.fail(c, "update ticket", err)
	}
}

// Delete succeeds whether or not the ticket existed.
func (h *TicketHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete ticket", err)
		return
	}
	render(c, http.StatusOK, "success.html", "Deleted", gin.H{
		"Message": "The delivery request has been deleted.",
	})
}

func (h *TicketHandler) load(c *gin.Context) (*model.Ticket, bool) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, errs.ErrTicketNotFound) {
			render(c, http.StatusNotFound, "not_found.html", "Not found", nil)
			return nil, false
		}
		h.fail(c, "get ticket", err)
		return nil, false
	}
	return t, true
}

func (h *TicketHandler) fail(c *gin.Context, op string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.log.Warn(op, "path", c.Request.URL.Path, "limit", tooLarge.Limit)
		render(c, http.StatusRequestEntityTooLarge, "error.html", "Error", nil)
		return
	}
	h.log.Error(op, "path", c.Request.URL.Path, "error", err)
	render(c, http.StatusInternalServerError, "error.html", "Error", nil)
}

// readInput turns the form and optional "photo" part into a service.Input.
// done closes the uploaded file.
func readInput(c *gin.Context, form ticketForm) (service.Input, func(), error) {
	in := service.Input{
		CustomerName: form.CustomerName,
		Email:        form.Email,
		Phone:        form.Phone,
		Description:  form.Description,
	}
	fh, err := c.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, func() {}, nil
	case err != nil:
		return in, func() {}, err
	}
	f, err := fh.Open()
	if err != nil {
		return in, func() {}, err
	}
	in.Photo = &service.Upload{Name: fh.Filename, Body: f}
	return in, func() { _ = f.Close() }, nil
}
