package quicktest

import (
	"context"
	"fmt"

	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/status"
)

// Prompt asks the tester for a comment before feedback is sent.
type Prompt struct {
	CaseID  uint
	Result  status.Result // preselected: the existing result when updating, else the one clicked
	Comment string        // prefilled with the existing comment when updating
	Update  bool
}

// Quick handles a pass/fail click. A first pass is submitted at once with an
// automatic comment. A first fail or a change to existing feedback returns a
// Prompt instead, and nothing is sent until Confirm. An update prompt starts
// from the feedback as it stands, both result and comment.
func (c *Controller) Quick(ctx context.Context, caseID uint, result status.Result) (*Submission, *Prompt, error) {
	if !result.Valid() {
		return nil, nil, errors.ValidationError(fmt.Sprintf("invalid result %q", result))
	}

	vm := c.Snapshot()
	if vm == nil {
		return nil, nil, ErrNotLoaded
	}
	cv, ok := vm.Case(caseID)
	if !ok {
		return nil, nil, errors.NotFoundError(ErrCaseNotFound, caseID)
	}
	if c.Pending(caseID) {
		return nil, nil, ErrSubmissionInFlight
	}

	if cv.MyFeedback == nil && result == status.ResultPass {
		sub, err := c.Submit(ctx, caseID, result, "")
		return sub, nil, err
	}

	p := &Prompt{CaseID: caseID, Result: result}
	if cv.MyFeedback != nil {
		p.Update = true
		p.Result = cv.MyFeedback.Result
		p.Comment = cv.MyFeedback.Comment
	}
	return nil, p, nil
}

// Confirm submits a prompt with the result and comment the tester settled on.
func (c *Controller) Confirm(ctx context.Context, p *Prompt, result status.Result, comment string) (*Submission, error) {
	if p == nil {
		return nil, errors.ValidationError("nil prompt")
	}
	if result == "" {
		result = p.Result
	}
	return c.Submit(ctx, p.CaseID, result, comment)
}
