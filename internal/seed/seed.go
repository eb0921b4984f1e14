// Package seed loads organizations, sessions, features and cases from a YAML
// fixture so a local instance has something to test against.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quicktest-hq/quicktest/internal/datastore/entities"
	"github.com/quicktest-hq/quicktest/internal/datastore/repository"
	"github.com/quicktest-hq/quicktest/internal/errors"
)

// Fixture is the root of a seed file.
//
//	organization: Demo Organization
//	sessions:
//	  - title: Sprint 1 Testing
//	    assignees: [1, 2]
//	    features:
//	      - title: Login
//	        cases:
//	          - title: Valid password
//	            expectedOutput: Dashboard is shown
type Fixture struct {
	Organization string    `yaml:"organization"`
	Sessions     []Session `yaml:"sessions"`
}

// Session describes one session and its features.
type Session struct {
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Status      string     `yaml:"status"`
	StartDate   *time.Time `yaml:"startDate"`
	EndDate     *time.Time `yaml:"endDate"`
	Assignees   []uint     `yaml:"assignees"`
	Features    []Feature  `yaml:"features"`
}

// Feature describes one feature and its cases. Order in the file is display order.
type Feature struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Cases       []Case `yaml:"cases"`
}

// Case describes one test case.
type Case struct {
	Title          string `yaml:"title"`
	Note           string `yaml:"note"`
	ExpectedOutput string `yaml:"expectedOutput"`
}

// Parse decodes a fixture. Unknown keys are rejected so typos surface early.
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, errors.New(fmt.Errorf("decode fixture: %w", err)).
			Component("seed").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("seed").
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}
	return Parse(bytes.NewReader(data))
}

// Validate checks the fixture and reports every problem at once.
func (f *Fixture) Validate() error {
	var problems []string
	if strings.TrimSpace(f.Organization) == "" {
		problems = append(problems, "organization is required")
	}
	if len(f.Sessions) == 0 {
		problems = append(problems, "at least one session is required")
	}
	for i, s := range f.Sessions {
		where := fmt.Sprintf("sessions[%d]", i)
		if strings.TrimSpace(s.Title) == "" {
			problems = append(problems, where+": title is required")
		}
		switch s.Status {
		case "", entities.SessionStatusDraft, entities.SessionStatusActive, entities.SessionStatusCompleted:
		default:
			problems = append(problems, fmt.Sprintf("%s: unknown status %q", where, s.Status))
		}
		if s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate) {
			problems = append(problems, where+": endDate is before startDate")
		}
		for _, id := range s.Assignees {
			if id == 0 {
				problems = append(problems, where+": assignee ids must be positive")
				break
			}
		}
		for j, feat := range s.Features {
			if strings.TrimSpace(feat.Title) == "" {
				problems = append(problems, fmt.Sprintf("%s.features[%d]: title is required", where, j))
			}
			for k, c := range feat.Cases {
				if strings.TrimSpace(c.Title) == "" {
					problems = append(problems, fmt.Sprintf("%s.features[%d].cases[%d]: title is required", where, j, k))
				}
			}
		}
	}

	if len(problems) > 0 {
		return errors.Newf("invalid fixture:\n  - %s", strings.Join(problems, "\n  - ")).
			Component("seed").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// Result summarizes what Apply created.
type Result struct {
	OrganizationID uint
	Sessions       []*entities.Session
	Features       int
	Cases          int
}

// Apply stores the fixture. The organization is reused when it already exists;
// sessions are always created anew.
func Apply(ctx context.Context, repo repository.SessionRepository, f *Fixture) (*Result, error) {
	org, err := repo.EnsureOrganization(ctx, f.Organization)
	if err != nil {
		return nil, wrapStore(err, "organization", f.Organization)
	}

	res := &Result{OrganizationID: org.ID}
	for _, s := range f.Sessions {
		session := toEntity(org.ID, s)
		if err := repo.CreateSession(ctx, session); err != nil {
			return res, wrapStore(err, "session", s.Title)
		}
		for _, tester := range s.Assignees {
			if err := repo.AssignTester(ctx, session.ID, tester); err != nil {
				return res, wrapStore(err, "assignee", tester)
			}
		}
		res.Sessions = append(res.Sessions, session)
		res.Features += len(session.Features)
		for _, feat := range session.Features {
			res.Cases += len(feat.Cases)
		}
	}
	return res, nil
}

func toEntity(orgID uint, s Session) *entities.Session {
	status := s.Status
	if status == "" {
		status = entities.SessionStatusActive
	}
	session := &entities.Session{
		OrganizationID: orgID,
		Title:          s.Title,
		Description:    s.Description,
		Status:         status,
		StartDate:      s.StartDate,
		EndDate:        s.EndDate,
	}
	for i, feat := range s.Features {
		fe := entities.Feature{
			Title:       feat.Title,
			Description: feat.Description,
			Status:      entities.SessionStatusActive,
			SortOrder:   i,
		}
		for j, c := range feat.Cases {
			fe.Cases = append(fe.Cases, entities.TestCase{
				Title:          c.Title,
				Note:           c.Note,
				ExpectedOutput: c.ExpectedOutput,
				SortOrder:      j,
			})
		}
		session.Features = append(session.Features, fe)
	}
	return session
}

func wrapStore(err error, what string, key any) error {
	return errors.New(err).
		Component("seed").
		Category(errors.CategoryDatabase).
		Context(what, key).
		Build()
}
