package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/delivery-service/internal/errs"
	"github.com/psds-microservice/delivery-service/internal/validation"
)

const LoginPath = "/login"

// Authenticator checks an admin username/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (bool, error)
}

type CookieConfig struct {
	Name     string
	MaxAge   int
	Secure   bool
	SameSite http.SameSite
}

// Gate guards admin-only routes.
type Gate struct {
	store  Store
	auth   Authenticator
	cookie CookieConfig
	log    *slog.Logger
}

func NewGate(store Store, auth Authenticator, cookie CookieConfig, log *slog.Logger) *Gate {
	return &Gate{store: store, auth: auth, cookie: cookie, log: log}
}

// Middleware attaches the browser's session to the request context, creating
// and persisting a fresh one on first contact.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		token, _ := c.Cookie(g.cookie.Name)

		sess, err := g.store.Load(ctx, token)
		if errors.Is(err, errs.ErrSessionNotFound) {
			sess, err = g.start(ctx)
			if err == nil {
				g.setCookie(c, sess.Token)
			}
		}
		if err != nil {
			g.log.Error("session unavailable", "error", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Request = c.Request.WithContext(WithSession(ctx, sess))
		c.Next()
	}
}

// RequireAuthenticated redirects to the login page unless the session is an
// admin one.
func (g *Gate) RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Current(c).IsAdmin() {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Login validates the form, checks the credentials and marks the session as
// logged in. Form problems come back as validation.Errors, a wrong pair as
// errs.ErrInvalidCredentials.
func (g *Gate) Login(ctx context.Context, sess *Session, username, password string) error {
	if sess == nil {
		return errors.New("session: missing session")
	}
	if err := validation.Login(username, password).Err(); err != nil {
		return err
	}
	ok, err := g.auth.Authenticate(ctx, username, password)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		g.log.Info("login rejected", "username", username)
		return errs.ErrInvalidCredentials
	}
	sess.LoggedIn = true
	sess.Username = username
	if err := g.store.Save(ctx, sess); err != nil {
		return err
	}
	g.log.Info("admin logged in", "username", username)
	return nil
}

// Logout drops the server-side record; the next request starts a fresh
// anonymous session.
func (g *Gate) Logout(ctx context.Context, sess *Session) error {
	if !sess.IsAdmin() {
		return nil
	}
	g.log.Info("admin logged out", "username", sess.Username)
	sess.LoggedIn = false
	sess.Username = ""
	return g.store.Delete(ctx, sess.Token)
}

func (g *Gate) start(ctx context.Context) (*Session, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	sess := &Session{Token: token}
	if err := g.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (g *Gate) setCookie(c *gin.Context, token string) {
	c.SetSameSite(g.cookie.SameSite)
	c.SetCookie(g.cookie.Name, token, g.cookie.MaxAge, "/", "", g.cookie.Secure, true)
}

// Current returns the session attached by Middleware, or nil.
func Current(c *gin.Context) *Session {
	return FromContext(c.Request.Context())
}
