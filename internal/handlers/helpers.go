package handlers

import (
	"context"
	"database/sql"
	"time"

	"nexusgate/internal/database"

	"github.com/labstack/echo/v4"
)

func dbHandle() (*sql.DB, error) {
	return database.DB.DB()
}

func contextWithTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), d)
}
