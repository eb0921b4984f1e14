package quicktest

import (
	"fmt"

	"github.com/quicktest-hq/quicktest/internal/dashboard"
	"github.com/quicktest-hq/quicktest/internal/status"
)

// StatusFilter narrows the cases shown, judged by the viewer's own feedback.
type StatusFilter string

const (
	FilterAll      StatusFilter = "all"
	FilterUntested StatusFilter = "untested"
	FilterTested   StatusFilter = "tested"
	FilterPass     StatusFilter = "pass"
	FilterFail     StatusFilter = "fail"
)

// ParseStatusFilter validates a filter name. Empty means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterUntested, FilterTested, FilterPass, FilterFail:
		return f, nil
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

// Match reports whether a case passes the filter.
func (f StatusFilter) Match(c dashboard.CaseView) bool {
	switch f {
	case FilterUntested:
		return c.MyFeedback == nil
	case FilterTested:
		return c.MyFeedback != nil
	case FilterPass:
		return c.MyFeedback != nil && c.MyFeedback.Result == status.ResultPass
	case FilterFail:
		return c.MyFeedback != nil && c.MyFeedback.Result == status.ResultFail
	}
	return true
}

// FilterCases returns the cases matching f, keeping their order.
func FilterCases(cases []dashboard.CaseView, f StatusFilter) []dashboard.CaseView {
	out := make([]dashboard.CaseView, 0, len(cases))
	for _, c := range cases {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// ToggleAll collapses every feature when all are expanded, otherwise expands all.
func ToggleAll(vm *dashboard.ViewModel, expanded []uint) []uint {
	if vm == nil || len(vm.Features) == 0 {
		return []uint{}
	}
	if len(knownFeatures(vm, expanded)) == len(vm.Features) {
		return []uint{}
	}
	all := make([]uint, len(vm.Features))
	for i, f := range vm.Features {
		all[i] = f.ID
	}
	return all
}
