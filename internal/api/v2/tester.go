package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quicktest-hq/quicktest/internal/errors"
)

// HeaderTesterID carries the caller's tester identity. Authentication happens
// in front of this service; the header is trusted as-is.
const HeaderTesterID = "X-Tester-ID"

const testerIDKey = "tester_id"

// TesterIdentity parses the X-Tester-ID header into the request context. When
// required is set, requests without it are rejected with 401.
func (c *Controller) TesterIdentity(required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			raw := ctx.Request().Header.Get(HeaderTesterID)
			if raw == "" {
				if required {
					return c.HandleError(ctx, nil, "Missing "+HeaderTesterID+" header", http.StatusUnauthorized)
				}
				return next(ctx)
			}

			id, err := strconv.ParseUint(raw, 10, 0)
			if err != nil || id == 0 {
				return c.HandleError(ctx, errors.ValidationError("invalid tester id"),
					"Invalid "+HeaderTesterID+" header", http.StatusBadRequest)
			}
			ctx.Set(testerIDKey, uint(id))
			return next(ctx)
		}
	}
}

// testerID returns the caller set by TesterIdentity, or 0 for anonymous requests.
func testerID(ctx echo.Context) uint {
	id, _ := ctx.Get(testerIDKey).(uint)
	return id
}

// idParam parses a positive numeric path parameter.
func idParam(ctx echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 0)
	if err != nil || id == 0 {
		return 0, errors.ValidationError("invalid " + name + " parameter")
	}
	return uint(id), nil
}
