package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/microblog/backend/internal/middleware"
	"github.com/anonto42/microblog/backend/internal/models"
	"github.com/anonto42/microblog/backend/internal/repositories"
)

func success(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// repoError translates a repository error kind into an HTTP status.
func repoError(log *zap.Logger, err error) error {
	switch {
	case repositories.ErrNotFound.Has(err):
		log.Debug("not found", zap.Error(err))
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case repositories.ErrConflict.Has(err):
		log.Debug("conflict", zap.Error(err))
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case repositories.ErrInvalidOperation.Has(err):
		log.Debug("invalid operation", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		log.Error("storage unavailable", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Service unavailable, retry later")
	}
}

// currentUser returns the caller set by the auth middleware.
func currentUser(c echo.Context) (*models.User, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return user, nil
}

func parseIDParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

// bindAndValidate decodes the JSON body into req and runs echo's validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}
