// Package rollup folds case statuses and tester feedback into feature and session statistics.
package rollup

import (
	"cmp"
	"math"
	"slices"

	"github.com/quicktest-hq/quicktest/internal/status"
)

// CaseInput is a case with its cached canonical status.
type CaseInput struct {
	ID     uint
	Status status.Status
}

// Feedback is a roster entry tied to the case it was submitted for.
type Feedback struct {
	CaseID uint
	status.Entry
}

// TesterStat counts the cases one tester has a current result for.
type TesterStat struct {
	Tested int `json:"tested"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

func (s TesterStat) add(o TesterStat) TesterStat {
	return TesterStat{Tested: s.Tested + o.Tested, Passed: s.Passed + o.Passed, Failed: s.Failed + o.Failed}
}

// FeatureStats is the rollup of one feature.
type FeatureStats struct {
	Total              int                 `json:"total"`
	Tested             int                 `json:"tested"`
	Untested           int                 `json:"untested"`
	PassedCases        int                 `json:"passedCases"`
	FailedCases        int                 `json:"failedCases"`
	ProgressPercentage int                 `json:"progressPercentage"`
	TesterStats        map[uint]TesterStat `json:"testerStats"`
}

// TesterContribution is one row of the session contribution chart.
type TesterContribution struct {
	TesterID uint `json:"testerId"`
	TesterStat
}

// SessionStats is the pairwise sum of every feature rollup in a session.
type SessionStats struct {
	TotalFeatures      int                  `json:"totalFeatures"`
	TotalCases         int                  `json:"totalCases"`
	TestedCases        int                  `json:"testedCases"`
	UntestedCases      int                  `json:"untestedCases"`
	PassedCases        int                  `json:"passedCases"`
	FailedCases        int                  `json:"failedCases"`
	ProgressPercentage int                  `json:"progressPercentage"`
	PassRate           int                  `json:"passRate"`
	ActiveTesters      int                  `json:"activeTesters"`
	Testers            []TesterContribution `json:"testers"`
}

// Percent returns round(100 * part / whole), or 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}

// Feature computes the rollup for one feature. Roster entries for cases outside
// the feature are ignored; each tester contributes only their current entry per case.
func Feature(cases []CaseInput, roster []Feedback) FeatureStats {
	stats := FeatureStats{
		Total:       len(cases),
		TesterStats: make(map[uint]TesterStat),
	}

	inFeature := make(map[uint]struct{}, len(cases))
	for _, c := range cases {
		inFeature[c.ID] = struct{}{}
		switch c.Status {
		case status.Pass:
			stats.PassedCases++
		case status.Fail:
			stats.FailedCases++
		}
	}
	stats.Tested = stats.PassedCases + stats.FailedCases
	stats.Untested = stats.Total - stats.Tested
	stats.ProgressPercentage = Percent(stats.Tested, stats.Total)

	type caseTester struct{ caseID, testerID uint }
	current := make(map[caseTester]status.Entry)
	for _, fb := range roster {
		if _, ok := inFeature[fb.CaseID]; !ok {
			continue
		}
		key := caseTester{fb.CaseID, fb.TesterID}
		if prev, ok := current[key]; !ok || fb.After(prev) {
			current[key] = fb.Entry
		}
	}

	for key, e := range current {
		ts := stats.TesterStats[key.testerID]
		ts.Tested++
		switch e.Result {
		case status.ResultPass:
			ts.Passed++
		case status.ResultFail:
			ts.Failed++
		}
		stats.TesterStats[key.testerID] = ts
	}

	return stats
}

// Session sums feature rollups. Active testers is the size of the union of tester
// IDs across features, not the sum of per-feature counts.
func Session(features []FeatureStats) SessionStats {
	stats := SessionStats{TotalFeatures: len(features), Testers: []TesterContribution{}}

	byTester := make(map[uint]TesterStat)
	for _, f := range features {
		stats.TotalCases += f.Total
		stats.TestedCases += f.Tested
		stats.UntestedCases += f.Untested
		stats.PassedCases += f.PassedCases
		stats.FailedCases += f.FailedCases
		for id, ts := range f.TesterStats {
			byTester[id] = byTester[id].add(ts)
		}
	}

	stats.ProgressPercentage = Percent(stats.TestedCases, stats.TotalCases)
	stats.PassRate = Percent(stats.PassedCases, stats.TestedCases)
	stats.ActiveTesters = len(byTester)

	for id, ts := range byTester {
		stats.Testers = append(stats.Testers, TesterContribution{TesterID: id, TesterStat: ts})
	}
	slices.SortFunc(stats.Testers, func(a, b TesterContribution) int {
		if c := cmp.Compare(b.Tested, a.Tested); c != 0 {
			return c
		}
		return cmp.Compare(a.TesterID, b.TesterID)
	})

	return stats
}
