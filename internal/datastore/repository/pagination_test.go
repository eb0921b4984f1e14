package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Page{Page: 1, Limit: DefaultPageLimit}, Page{}.normalize())
	assert.Equal(t, Page{Page: 2, Limit: MaxPageLimit}, Page{Page: 2, Limit: 5000}.normalize())
	assert.Equal(t, 20, Page{Page: 3, Limit: 10}.offset())
}

func TestNewPageMeta(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PageMeta{Total: 0, Page: 1, Limit: 10, TotalPages: 0}, newPageMeta(Page{Page: 1, Limit: 10}, 0))
	assert.Equal(t, PageMeta{Total: 21, Page: 1, Limit: 10, TotalPages: 3}, newPageMeta(Page{Page: 1, Limit: 10}, 21))
}
