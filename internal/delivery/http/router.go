package http

import (
	"errors"
	"net/http"

	"pulseai/internal/dto"
	"pulseai/internal/entity"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

// NewRouter builds the API server and mounts all handlers.
func NewRouter(digestHandler *DigestHandler, adminHandler *AdminHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	digestHandler.RegisterRoutes(e.Group("/digests"))
	adminHandler.RegisterRoutes(e.Group("/admin"))

	return e
}

// writeError maps an error to the structured API error payload.
func writeError(c echo.Context, err error) error {
	kind := entity.KindOf(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
		kind = entity.KindValidation
	case kind == entity.KindValidation:
		status = http.StatusBadRequest
	case kind == entity.KindNetwork, kind == entity.KindAIService:
		status = http.StatusBadGateway
	}
	return c.JSON(status, dto.ErrorResponse{Kind: string(kind), Error: err.Error()})
}
