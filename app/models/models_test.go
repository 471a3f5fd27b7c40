package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	cases := map[Code]error{
		"":                  nil,
		CodeValidation:      fmt.Errorf("add task: %w", ErrValidation),
		CodeNotFound:        fmt.Errorf("task 3: %w", ErrNotFound),
		CodeUnauthorized:    fmt.Errorf("task 3: %w", ErrUnauthorized),
		CodeNoOp:            ErrNoOp,
		CodeUnauthenticated: ErrUnauthenticated,
		CodeInternal:        errors.New("disk on fire"),
	}
	for want, err := range cases {
		assert.Equal(t, want, CodeOf(err), "error %v", err)
	}
}

func TestParseStatusFilter(t *testing.T) {
	f, err := ParseStatusFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	f, err = ParseStatusFilter(" Pending ")
	require.NoError(t, err)
	assert.Equal(t, FilterPending, f)

	_, err = ParseStatusFilter("archived")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStatusFilterMatches(t *testing.T) {
	assert.True(t, FilterAll.Matches(StatusCompleted))
	assert.True(t, FilterPending.Matches(StatusPending))
	assert.False(t, FilterPending.Matches(StatusInProgress))
	assert.True(t, FilterInProgress.Matches(StatusInProgress))
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "Buy milk", NormalizeTitle("  buy milk "))
	assert.Equal(t, "Éclairs", NormalizeTitle("éclairs"))
	assert.Equal(t, "", NormalizeTitle("   "))
}
