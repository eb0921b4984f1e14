package dashboard

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/quicktest-hq/quicktest/internal/rollup"
	"github.com/quicktest-hq/quicktest/internal/status"
)

// TempIDPrefix marks feedback that exists only as an optimistic local patch.
const TempIDPrefix = "tmp-"

// ViewModel is everything the quick test page renders for one tester.
// It is derived data and may be discarded and rebuilt at any time.
type ViewModel struct {
	Session  SessionSummary      `json:"session"`
	Features []FeatureView       `json:"features"`
	Stats    rollup.SessionStats `json:"stats"`
}

// SessionSummary is the session header.
type SessionSummary struct {
	ID             uint       `json:"id"`
	OrganizationID uint       `json:"orgId"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	AssigneeIDs    []uint     `json:"assigneeIds"`
}

// FeatureView is a feature with its ordered cases and rollup.
type FeatureView struct {
	ID          uint                `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Status      string              `json:"status"`
	SortOrder   int                 `json:"sortOrder"`
	Cases       []CaseView          `json:"cases"`
	Stats       rollup.FeatureStats `json:"stats"`
}

// CaseView is a case with its canonical status and the viewer's own feedback.
type CaseView struct {
	ID             uint          `json:"id"`
	FeatureID      uint          `json:"featureId"`
	Title          string        `json:"title"`
	Note           string        `json:"note,omitempty"`
	ExpectedOutput string        `json:"expectedOutput,omitempty"`
	SortOrder      int           `json:"sortOrder"`
	Status         status.Status `json:"status"`
	MyFeedback     *FeedbackView `json:"myFeedback"`
}

// FeedbackView is one feedback entry as shown to its author. ID is a decimal
// server identity, or TempIDPrefix followed by a UUID while a create is pending.
type FeedbackView struct {
	ID        string        `json:"id"`
	Result    status.Result `json:"result"`
	Comment   string        `json:"comment"`
	CreatedAt time.Time     `json:"createdAt"`
}

// IsTemporary reports whether the entry has not been confirmed by the server.
func (f *FeedbackView) IsTemporary() bool {
	return f != nil && strings.HasPrefix(f.ID, TempIDPrefix)
}

// ServerID returns the numeric identity of a confirmed entry.
func (f *FeedbackView) ServerID() (uint, bool) {
	if f == nil || f.IsTemporary() {
		return 0, false
	}
	id, err := strconv.ParseUint(f.ID, 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// FindCase locates a case across features.
func (vm *ViewModel) FindCase(caseID uint) (featureIdx, caseIdx int, ok bool) {
	if vm == nil {
		return -1, -1, false
	}
	for fi := range vm.Features {
		for ci := range vm.Features[fi].Cases {
			if vm.Features[fi].Cases[ci].ID == caseID {
				return fi, ci, true
			}
		}
	}
	return -1, -1, false
}

// Case returns a copy of the case with the given ID.
func (vm *ViewModel) Case(caseID uint) (CaseView, bool) {
	fi, ci, ok := vm.FindCase(caseID)
	if !ok {
		return CaseView{}, false
	}
	return vm.Features[fi].Cases[ci], true
}

// WithFeedback returns a new view model in which the case's MyFeedback is fb.
// Only the path to the case is copied; vm itself is left untouched.
func (vm *ViewModel) WithFeedback(caseID uint, fb *FeedbackView) (*ViewModel, bool) {
	fi, ci, ok := vm.FindCase(caseID)
	if !ok {
		return vm, false
	}

	next := *vm
	next.Features = slices.Clone(vm.Features)
	next.Features[fi].Cases = slices.Clone(vm.Features[fi].Cases)
	if fb != nil {
		cp := *fb
		fb = &cp
	}
	next.Features[fi].Cases[ci].MyFeedback = fb
	return &next, true
}

// Clone returns a deep copy.
func (vm *ViewModel) Clone() *ViewModel {
	if vm == nil {
		return nil
	}
	out := *vm
	out.Session.AssigneeIDs = slices.Clone(vm.Session.AssigneeIDs)
	out.Stats.Testers = slices.Clone(vm.Stats.Testers)
	out.Features = make([]FeatureView, len(vm.Features))
	for i, f := range vm.Features {
		f.Stats.TesterStats = maps.Clone(f.Stats.TesterStats)
		f.Cases = slices.Clone(f.Cases)
		for j := range f.Cases {
			if fb := f.Cases[j].MyFeedback; fb != nil {
				cp := *fb
				f.Cases[j].MyFeedback = &cp
			}
		}
		out.Features[i] = f
	}
	return &out
}

// CaseIDs returns the IDs of every case in display order.
func (vm *ViewModel) CaseIDs() []uint {
	var ids []uint
	for _, f := range vm.Features {
		for _, c := range f.Cases {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
