package nlq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow is 2024-06-10 14:30:00 UTC, the reference instant used across
// time normalization tests.
var fixedNow = time.Date(2024, 6, 10, 14, 30, 0, 0, time.UTC)

func TestFindTimeRange(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		expectedStart time.Time
		expectedEnd   time.Time
		found         bool
	}{
		{
			name:          "yesterday",
			text:          "show me pods created yesterday",
			expectedStart: time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, 6, 9, 23, 59, 59, 0, time.UTC),
			found:         true,
		},
		{
			name:          "today",
			text:          "deployments updated today",
			expectedStart: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			expectedEnd:   fixedNow,
			found:         true,
		},
		{
			name:          "last n days",
			text:          "jobs from the last 3 days",
			expectedStart: fixedNow.Add(-3 * 24 * time.Hour),
			expectedEnd:   fixedNow,
			found:         true,
		},
		{
			name:          "past n hours",
			text:          "events in the past 6 hours",
			expectedStart: fixedNow.Add(-6 * time.Hour),
			expectedEnd:   fixedNow,
			found:         true,
		},
		{
			name:          "last week",
			text:          "pods that restarted last week",
			expectedStart: fixedNow.Add(-7 * 24 * time.Hour),
			expectedEnd:   fixedNow,
			found:         true,
		},
		{
			name:          "last n weeks",
			text:          "secrets rotated in the last 2 weeks",
			expectedStart: fixedNow.Add(-2 * 7 * 24 * time.Hour),
			expectedEnd:   fixedNow,
			found:         true,
		},
		{
			name:          "since iso date",
			text:          "pods since 2024-06-01",
			expectedStart: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			expectedEnd:   fixedNow,
			found:         true,
		},
		{
			name:          "after month name date",
			text:          "jobs after jun 1 2024",
			expectedStart: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			expectedEnd:   fixedNow,
			found:         true,
		},
		{
			name:          "before iso date",
			text:          "configmaps before 2024-05-01",
			expectedStart: time.Unix(0, 0).UTC(),
			expectedEnd:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			found:         true,
		},
		{
			name:          "on a specific day",
			text:          "pods created on 2024-06-05",
			expectedStart: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, 6, 5, 23, 59, 59, 0, time.UTC),
			found:         true,
		},
		{
			name:          "bare iso date",
			text:          "pods created 2024-06-05",
			expectedStart: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, 6, 5, 23, 59, 59, 0, time.UTC),
			found:         true,
		},
		{
			name:  "no time phrase",
			text:  "list all running pods",
			found: false,
		},
		{
			name:  "unrecognized phrase is not an error",
			text:  "pods from the before times",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := FindTimeRange(tt.text, fixedNow)
			require.Equal(t, tt.found, ok)
			if !tt.found {
				assert.True(t, r.IsZero())
				return
			}
			assert.Equal(t, tt.expectedStart, r.Start)
			assert.Equal(t, tt.expectedEnd, r.End)
			assert.False(t, r.Start.After(r.End), "normalized range must have start <= end")
		})
	}
}

func TestFindTimeRangeAlwaysOrdered(t *testing.T) {
	// Swap-on-inversion invariant: every phrase the normalizer recognizes
	// yields start <= end.
	phrases := []string{
		"yesterday", "today", "last week", "past hour",
		"last 1 days", "last 30 days", "past 2 hours", "last 4 weeks",
		"since 2024-01-01", "before 2024-01-01", "on 2024-02-29",
	}
	for _, phrase := range phrases {
		r, ok := FindTimeRange(phrase, fixedNow)
		require.True(t, ok, "phrase %q should be recognized", phrase)
		assert.False(t, r.Start.After(r.End), "phrase %q produced inverted range", phrase)
	}
}

func TestNormalizeTimePhrase(t *testing.T) {
	t.Run("relative phrase", func(t *testing.T) {
		r, ok := NormalizeTimePhrase("yesterday", fixedNow)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), r.Start)
	})

	t.Run("bare date means that day", func(t *testing.T) {
		r, ok := NormalizeTimePhrase("2024-06-05", fixedNow)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, time.Date(2024, 6, 5, 23, 59, 59, 0, time.UTC), r.End)
	})

	t.Run("rfc3339 timestamp", func(t *testing.T) {
		r, ok := NormalizeTimePhrase("since 2024-06-01t06:00:00z", fixedNow)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, fixedNow, r.End)
	})

	t.Run("empty phrase", func(t *testing.T) {
		_, ok := NormalizeTimePhrase("", fixedNow)
		assert.False(t, ok)
	})

	t.Run("gibberish", func(t *testing.T) {
		_, ok := NormalizeTimePhrase("whenever", fixedNow)
		assert.False(t, ok)
	})
}

func TestTimeRangeOrdered(t *testing.T) {
	a := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	r, swapped := TimeRange{Start: b, End: a}.Ordered()
	assert.True(t, swapped)
	assert.Equal(t, a, r.Start)
	assert.Equal(t, b, r.End)

	r, swapped = TimeRange{Start: a, End: b}.Ordered()
	assert.False(t, swapped)
	assert.Equal(t, a, r.Start)
	assert.Equal(t, b, r.End)
}

func TestTimeRangeContains(t *testing.T) {
	r := TimeRange{
		Start: time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 9, 23, 59, 59, 0, time.UTC),
	}

	assert.True(t, r.Contains(r.Start), "start bound is inclusive")
	assert.True(t, r.Contains(r.End), "end bound is inclusive")
	assert.True(t, r.Contains(time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(r.Start.Add(-time.Second)))
	assert.False(t, r.Contains(r.End.Add(time.Second)))
}
