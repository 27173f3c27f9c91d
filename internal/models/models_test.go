package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvenanceHash(t *testing.T) {
	a := ProvenanceHash("On Tea", "A summary.")
	b := ProvenanceHash("On Tea", "A summary.")
	assert.Equal(t, a, b, "hash is deterministic")
	assert.Len(t, a, 64, "sha256 hex")

	// Title/summary boundary matters: moving a character across the
	// separator must change the hash.
	assert.NotEqual(t, ProvenanceHash("ab", "c"), ProvenanceHash("a", "bc"))
}

func TestCommentPlanRoundTrip(t *testing.T) {
	id := uint(9)
	entries := []CommentPlanEntry{
		{DueAt: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC), Status: PlanEntryDone, CommentID: &id},
		{DueAt: time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC), Status: PlanEntryPending},
	}

	plan := CommentPlan{PostID: 1}
	require.NoError(t, plan.EncodeEntries(entries))

	decoded, err := plan.DecodeEntries()
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, PlanEntryDone, decoded[0].Status)
	require.NotNil(t, decoded[0].CommentID)
	assert.Equal(t, uint(9), *decoded[0].CommentID)
	assert.Equal(t, 1, plan.PendingCount())
}

func TestCommentPlanEmptyEntries(t *testing.T) {
	plan := CommentPlan{}
	decoded, err := plan.DecodeEntries()
	require.NoError(t, err)
	assert.Nil(t, decoded)
	assert.Zero(t, plan.PendingCount())
}

func TestIsValidJobStatus(t *testing.T) {
	for _, s := range []string{JobStatusDraft, JobStatusScheduled, JobStatusRunning, JobStatusCompleted, JobStatusFailed} {
		assert.True(t, IsValidJobStatus(s), s)
	}
	assert.False(t, IsValidJobStatus("queued"))
	assert.False(t, IsValidJobStatus(""))
}
