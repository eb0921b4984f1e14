package quicktest

import (
	"slices"

	"github.com/quicktest-hq/quicktest/internal/api/v2/dto"
	"github.com/quicktest-hq/quicktest/internal/datastore/repository"
)

// FeedbackList is the state of a paginated feedback history. Transitions are
// pure: Apply returns a new value and never touches the receiver's slices.
type FeedbackList struct {
	Items   []dto.FeedbackResponse
	Meta    repository.PageMeta
	Loading bool
	Err     error
}

// Action is a transition of a FeedbackList.
type Action interface {
	reduce(l FeedbackList) FeedbackList
}

// Fetching marks the list as loading.
type Fetching struct{}

// Fetched replaces the list with a loaded page.
type Fetched struct{ Page dto.FeedbackPage }

// FetchFailed records a load error and keeps the current items.
type FetchFailed struct{ Err error }

// Created prepends a new entry.
type Created struct{ Item dto.FeedbackResponse }

// Updated replaces the entry with the same ID.
type Updated struct{ Item dto.FeedbackResponse }

// Deleted removes the entry with ID.
type Deleted struct{ ID uint }

// Apply returns the list after a.
func (l FeedbackList) Apply(a Action) FeedbackList {
	return a.reduce(l)
}

func (Fetching) reduce(l FeedbackList) FeedbackList {
	l.Loading = true
	l.Err = nil
	return l
}

func (a Fetched) reduce(FeedbackList) FeedbackList {
	return FeedbackList{Items: slices.Clone(a.Page.Items), Meta: a.Page.Meta}
}

func (a FetchFailed) reduce(l FeedbackList) FeedbackList {
	l.Loading = false
	l.Err = a.Err
	return l
}

func (a Created) reduce(l FeedbackList) FeedbackList {
	l.Items = append([]dto.FeedbackResponse{a.Item}, l.Items...)
	l.Meta.Total++
	return l
}

func (a Updated) reduce(l FeedbackList) FeedbackList {
	i := slices.IndexFunc(l.Items, func(f dto.FeedbackResponse) bool { return f.ID == a.Item.ID })
	if i < 0 {
		return l
	}
	l.Items = slices.Clone(l.Items)
	l.Items[i] = a.Item
	return l
}

func (a Deleted) reduce(l FeedbackList) FeedbackList {
	i := slices.IndexFunc(l.Items, func(f dto.FeedbackResponse) bool { return f.ID == a.ID })
	if i < 0 {
		return l
	}
	l.Items = slices.Delete(slices.Clone(l.Items), i, i+1)
	if l.Meta.Total > 0 {
		l.Meta.Total--
	}
	return l
}
