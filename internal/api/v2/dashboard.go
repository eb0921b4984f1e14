package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (c *Controller) initDashboardRoutes() {
	sessions := c.Group.Group("/sessions", c.TesterIdentity(false))
	sessions.GET("/:id/dashboard", c.GetDashboard)
	sessions.GET("/:id/stats", c.GetSessionStats)
}

// GetDashboard returns the session view model personalized for the caller.
func (c *Controller) GetDashboard(ctx echo.Context) error {
	sessionID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid session ID", http.StatusBadRequest)
	}

	vm, err := c.Dashboard.Build(ctx.Request().Context(), sessionID, testerID(ctx))
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to load dashboard")
	}
	return ctx.JSON(http.StatusOK, vm)
}

// GetSessionStats returns only the session rollup.
func (c *Controller) GetSessionStats(ctx echo.Context) error {
	sessionID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid session ID", http.StatusBadRequest)
	}

	vm, err := c.Dashboard.Build(ctx.Request().Context(), sessionID, 0)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to load session stats")
	}
	return ctx.JSON(http.StatusOK, vm.Stats)
}
