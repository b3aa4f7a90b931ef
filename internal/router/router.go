package router

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/psds-microservice/delivery-service/api"
	"github.com/psds-microservice/delivery-service/internal/handler"
	"github.com/psds-microservice/delivery-service/internal/photo"
	"github.com/psds-microservice/delivery-service/internal/session"
	"github.com/psds-microservice/delivery-service/internal/web"
)

const (
	PathHealth  = "/health"
	PathReady   = "/ready"
	PathSwagger = "/swagger"
)

type Deps struct {
	Tickets        *handler.TicketHandler
	Auth           *handler.AuthHandler
	Health         *handler.HealthHandler
	Gate           *session.Gate
	Uploads        afero.Fs
	MaxUploadBytes int64
	Log            *slog.Logger
}

func New(d Deps) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Log))
	r.SetHTMLTemplate(tmpl)
	if d.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = d.MaxUploadBytes
	}

	r.GET(PathHealth, d.Health.Health)
	r.GET(PathReady, d.Health.Ready)
	r.GET(PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, PathSwagger+"/") })
	r.GET(PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = PathSwagger + "/index.html"
			c.Request.RequestURI = PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(PathSwagger+"/openapi.json"))(c)
	})

	r.StaticFS("/static", filesOnly{http.FS(web.Static())})
	r.StaticFS(photo.UploadsDir, filesOnly{afero.NewHttpFs(d.Uploads).Dir(photo.UploadsDir)})

	pages := r.Group("/", d.Gate.Middleware())
	{
		pages.GET("/", d.Auth.Home)
		pages.GET("/request_form", d.Tickets.RequestForm)
		pages.POST("/request_form/submit", limitBody(d.MaxUploadBytes), d.Tickets.Submit)
		pages.GET(session.LoginPath, d.Auth.LoginPage)
		pages.POST("/authenticate", d.Auth.Authenticate)
		pages.GET("/logout", d.Auth.Logout)
	}

	admin := pages.Group("/", d.Gate.RequireAuthenticated())
	{
		admin.GET("/dashboard", d.Tickets.Dashboard)
		admin.GET("/view/:id", d.Tickets.View)
		admin.GET("/edit/:id", d.Tickets.Edit)
		admin.GET("/delete/:id", d.Tickets.Delete)
		admin.POST("/request_form/update", limitBody(d.MaxUploadBytes), d.Tickets.Update)
	}

	r.NoRoute(func(c *gin.Context) { c.Redirect(http.StatusFound, "/") })
	return r, nil
}
