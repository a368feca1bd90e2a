package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func RootHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "Video-to-Summary API is running!"})
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
