package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/delivery-service/internal/errs"
	"github.com/psds-microservice/delivery-service/internal/session"
	"github.com/psds-microservice/delivery-service/internal/validation"
)

const (
	loginInvalid     = "invalid"
	loginCredentials = "credentials"
)

type AuthHandler struct {
	gate *session.Gate
	log  *slog.Logger
}

func NewAuthHandler(gate *session.Gate, log *slog.Logger) *AuthHandler {
	return &AuthHandler{gate: gate, log: log}
}

// Home sends admins to the dashboard and everyone else to the request form.
func (h *AuthHandler) Home(c *gin.Context) {
	if session.Current(c).IsAdmin() {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.Redirect(http.StatusFound, "/request_form")
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	if session.Current(c).IsAdmin() {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	render(c, http.StatusOK, "login.html", "Admin login", gin.H{
		"LoginError": c.Query("errors") != "",
	})
}

func (h *AuthHandler) Authenticate(c *gin.Context) {
	err := h.gate.Login(c.Request.Context(), session.Current(c), c.PostForm("username"), c.PostForm("password"))
	if err == nil {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}

	var findings validation.Errors
	switch {
	case errors.As(err, &findings):
		c.Redirect(http.StatusSeeOther, session.LoginPath+"?errors="+loginInvalid)
	case errors.Is(err, errs.ErrInvalidCredentials):
		c.Redirect(http.StatusSeeOther, session.LoginPath+"?errors="+loginCredentials)
	default:
		h.log.Error("login failed", "error", err)
		render(c, http.StatusInternalServerError, "error.html", "Error", nil)
	}
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.gate.Logout(c.Request.Context(), session.Current(c)); err != nil {
		h.log.Error("logout failed", "error", err)
		render(c, http.StatusInternalServerError, "error.html", "Error", nil)
		return
	}
	c.Redirect(http.StatusFound, session.LoginPath)
}
