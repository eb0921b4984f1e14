package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quicktest-hq/quicktest/internal/api/v2/dto"
	"github.com/quicktest-hq/quicktest/internal/datastore/repository"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/mqtt"
	"github.com/quicktest-hq/quicktest/internal/observability/metrics"
	"github.com/quicktest-hq/quicktest/internal/status"
)

func (c *Controller) initFeedbackRoutes() {
	cases := c.Group.Group("/cases")
	cases.GET("/:id/feedback", c.ListCaseFeedback)
	cases.POST("/:id/feedback", c.CreateFeedback, c.TesterIdentity(true))

	feedback := c.Group.Group("/feedback", c.TesterIdentity(true))
	feedback.PUT("/:id", c.UpdateFeedback)
	feedback.DELETE("/:id", c.DeleteFeedback)
}

// bindFeedback decodes and validates a create or update body.
func bindFeedback(ctx echo.Context) (status.Result, string, error) {
	var req dto.FeedbackRequest
	if err := ctx.Bind(&req); err != nil {
		return "", "", errors.ValidationError("malformed request body")
	}
	result, err := status.ParseResult(req.Result)
	if err != nil {
		return "", "", errors.New(err).Category(errors.CategoryValidation).Component("api").Build()
	}
	return result, req.Comment, nil
}

// CreateFeedback records a new feedback entry for a case.
func (c *Controller) CreateFeedback(ctx echo.Context) error {
	caseID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid case ID", http.StatusBadRequest)
	}
	result, comment, err := bindFeedback(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid feedback", http.StatusBadRequest)
	}

	res, err := c.Feedback.Create(ctx.Request().Context(), caseID, testerID(ctx), result, comment)
	if err != nil {
		c.recordWrite(metrics.OpFeedbackCreate, metricStatus(err))
		return c.handleDomainError(ctx, err, "Failed to create feedback")
	}
	c.afterWrite(metrics.OpFeedbackCreate, res)
	return ctx.JSON(http.StatusCreated, writeResponse(res))
}

// UpdateFeedback changes result and comment of the caller's own entry.
func (c *Controller) UpdateFeedback(ctx echo.Context) error {
	feedbackID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid feedback ID", http.StatusBadRequest)
	}
	result, comment, err := bindFeedback(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid feedback", http.StatusBadRequest)
	}

	res, err := c.Feedback.Update(ctx.Request().Context(), feedbackID, testerID(ctx), result, comment)
	if err != nil {
		c.recordWrite(metrics.OpFeedbackUpdate, metricStatus(err))
		return c.handleDomainError(ctx, err, "Failed to update feedback")
	}
	c.afterWrite(metrics.OpFeedbackUpdate, res)
	return ctx.JSON(http.StatusOK, writeResponse(res))
}

// DeleteFeedback removes the caller's own entry.
func (c *Controller) DeleteFeedback(ctx echo.Context) error {
	feedbackID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid feedback ID", http.StatusBadRequest)
	}

	res, err := c.Feedback.Delete(ctx.Request().Context(), feedbackID, testerID(ctx))
	if err != nil {
		c.recordWrite(metrics.OpFeedbackDelete, metricStatus(err))
		return c.handleDomainError(ctx, err, "Failed to delete feedback")
	}
	c.afterWrite(metrics.OpFeedbackDelete, res)
	return ctx.NoContent(http.StatusNoContent)
}

// ListCaseFeedback returns a case's feedback history, newest first.
func (c *Controller) ListCaseFeedback(ctx echo.Context) error {
	caseID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid case ID", http.StatusBadRequest)
	}
	page, err := bindPage(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid pagination parameters", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	if _, err := c.Sessions.GetCase(reqCtx, caseID); err != nil {
		return c.handleDomainError(ctx, err, "Failed to load case")
	}

	items, meta, err := c.Feedback.ListByCase(reqCtx, caseID, page)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to list feedback")
	}

	resp := dto.FeedbackPage{Items: make([]dto.FeedbackResponse, 0, len(items)), Meta: meta}
	for i := range items {
		resp.Items = append(resp.Items, dto.NewFeedbackResponse(&items[i]))
	}
	return ctx.JSON(http.StatusOK, resp)
}

// bindPage reads the page and limit query parameters. Out-of-range values are
// clamped by the repository.
func bindPage(ctx echo.Context) (repository.Page, error) {
	var page repository.Page
	err := echo.QueryParamsBinder(ctx).
		Int("page", &page.Page).
		Int("limit", &page.Limit).
		BindError()
	if err != nil {
		return repository.Page{}, errors.ValidationError("page and limit must be integers")
	}
	return page, nil
}

func writeResponse(res *repository.WriteResult) dto.FeedbackResponse {
	resp := dto.NewFeedbackResponse(&res.Feedback)
	resp.CaseStatus = string(res.CaseStatus)
	return resp
}

func (c *Controller) recordWrite(op, outcome string) {
	if c.metrics != nil {
		c.metrics.QuickTest.RecordFeedbackWrite(op, outcome)
	}
}

// afterWrite records metrics and announces the committed change.
func (c *Controller) afterWrite(op string, res *repository.WriteResult) {
	c.recordWrite(op, metrics.StatusSuccess)
	if c.metrics != nil {
		c.metrics.QuickTest.RecordStatusRecompute(string(res.CaseStatus))
	}

	c.logger.Info("feedback "+res.Action,
		logger.Uint("feedback_id", res.Feedback.ID),
		logger.Uint("case_id", res.Feedback.CaseID),
		logger.Uint("tester_id", res.Feedback.TesterID),
		logger.String("case_status", string(res.CaseStatus)))

	c.publish(mqtt.Event{
		Action:     res.Action,
		SessionID:  res.SessionID,
		CaseID:     res.Feedback.CaseID,
		FeedbackID: res.Feedback.ID,
		TesterID:   res.Feedback.TesterID,
		Result:     string(res.Feedback.Result),
		CaseStatus: string(res.CaseStatus),
		At:         res.Feedback.UpdatedAt,
	})
}
