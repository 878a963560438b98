package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPendingChange_Sendable(t *testing.T) {
	now := time.Now()

	tests := []struct {
		change   *PendingChange
		name     string
		expected bool
	}{
		{
			name:     "fresh change",
			change:   &PendingChange{},
			expected: true,
		},
		{
			name:     "errored change",
			change:   &PendingChange{Errored: true},
			expected: false,
		},
		{
			name:     "linked to conflict",
			change:   &PendingChange{ConflictID: "c-1"},
			expected: false,
		},
		{
			name:     "in flight",
			change:   &PendingChange{InFlight: true},
			expected: false,
		},
		{
			name:     "backoff not elapsed",
			change:   &PendingChange{NextAttemptAt: now.Add(time.Second)},
			expected: false,
		},
		{
			name:     "backoff elapsed",
			change:   &PendingChange{NextAttemptAt: now.Add(-time.Second)},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.change.Sendable(now))
		})
	}
}

func TestPendingChange_Clone(t *testing.T) {
	ref := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	original := &PendingChange{
		ID:          "ch-1",
		EntityType:  "experiment",
		EntityID:    "e-1",
		Operation:   OpUpdate,
		Payload:     map[string]any{"title": "A", "tags": []any{"x"}},
		Metadata:    EntityMetadata{Project: "p1", ReferenceDate: &ref},
		BaseVersion: 3,
	}

	clone := original.Clone()
	assert.Equal(t, original, clone)

	clone.Payload["title"] = "B"
	clone.Payload["tags"].([]any)[0] = "y"
	*clone.Metadata.ReferenceDate = ref.Add(time.Hour)

	assert.Equal(t, "A", original.Payload["title"])
	assert.Equal(t, "x", original.Payload["tags"].([]any)[0])
	assert.Equal(t, ref, *original.Metadata.ReferenceDate)
}

func TestPendingChange_ClaimedVersion(t *testing.T) {
	assert.Equal(t, int64(1), (&PendingChange{}).ClaimedVersion())
	assert.Equal(t, int64(6), (&PendingChange{BaseVersion: 5}).ClaimedVersion())
}

func TestPriority_Rank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityNormal.Rank())
	assert.Less(t, PriorityNormal.Rank(), PriorityLow.Rank())
	assert.Equal(t, PriorityNormal.Rank(), Priority("").Rank())
}

func TestLock_Overlaps(t *testing.T) {
	field := &Lock{Field: "title"}
	whole := &Lock{}

	assert.True(t, field.Overlaps("title"))
	assert.False(t, field.Overlaps("body"))
	assert.True(t, field.Overlaps(""))
	assert.True(t, whole.Overlaps("body"))
	assert.True(t, whole.WholeDocument())
}

func TestDateRange_Contains(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	r := DateRange{From: from, To: to}

	assert.True(t, r.Contains(from))
	assert.True(t, r.Contains(to))
	assert.False(t, r.Contains(from.Add(-time.Nanosecond)))
	assert.False(t, r.Contains(to.Add(time.Nanosecond)))
	assert.True(t, DateRange{}.Contains(to))
}
