package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/delivery-service/internal/session"
)

// render fills in what every layout needs before handing off to gin.
func render(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Session"] = session.Current(c)
	c.HTML(status, name, data)
}
