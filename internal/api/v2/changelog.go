package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quicktest-hq/quicktest/internal/api/v2/dto"
	"github.com/quicktest-hq/quicktest/internal/datastore/entities"
)

func (c *Controller) initChangelogRoutes() {
	c.Group.GET("/changelog", c.GetChangelog)
	c.Group.GET("/changelog/:entityType/:entityId", c.GetChangelog)
}

// GetChangelog lists audit entries, optionally narrowed to one entity.
func (c *Controller) GetChangelog(ctx echo.Context) error {
	entityType := ctx.Param("entityType")
	if entityType != "" && entityType != entities.EntityFeedback {
		return c.HandleError(ctx, nil, "Unknown entity type "+strconv.Quote(entityType), http.StatusBadRequest)
	}

	var entityID uint
	if raw := ctx.Param("entityId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid entity ID", http.StatusBadRequest)
		}
		entityID = uint(id)
	}

	page, err := bindPage(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid pagination parameters", http.StatusBadRequest)
	}

	items, meta, err := c.Changelog.List(ctx.Request().Context(), entityType, entityID, page)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to load changelog")
	}

	resp := dto.ChangelogPage{Items: make([]dto.ChangelogResponse, 0, len(items)), Meta: meta}
	for i := range items {
		resp.Items = append(resp.Items, dto.NewChangelogResponse(&items[i]))
	}
	return ctx.JSON(http.StatusOK, resp)
}
