package handler // handler defines http handlers

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/middleware"
	"github.com/iliyamo/marketplace-api/internal/model"
)

// getUserID extracts the authenticated account id from the echo context.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get(middleware.CtxUserID).(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, errors.New("invalid user_id in context")
}

// getRole extracts the authenticated account role from the echo context.
func getRole(c echo.Context) (model.Role, error) {
	if role, ok := c.Get(middleware.CtxRole).(model.Role); ok && role.Valid() {
		return role, nil
	}
	return "", errors.New("invalid role in context")
}
