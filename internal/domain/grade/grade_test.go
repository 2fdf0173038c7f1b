package grade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortByDateDesc(t *testing.T) {
	grades := []Grade{
		{ID: 1, Date: "2024-01-15", Timestamp: 10},
		{ID: 2, Date: "2025-01-15", Timestamp: 20},
		{ID: 3, Date: "2024-06-01", Timestamp: 30},
		{ID: 4, Date: "2025-01-15", Timestamp: 40},
	}

	SortByDateDesc(grades)

	ids := make([]int64, len(grades))
	for i, g := range grades {
		ids[i] = g.ID
	}
	assert.Equal(t, []int64{4, 2, 3, 1}, ids)
	assert.True(t, IsSortedByDateDesc(grades))
}

func TestAnalyzeEmpty(t *testing.T) {
	a := Analyze(nil)
	assert.Equal(t, 0, a.Count)
	assert.Equal(t, TrendNone, a.Trend)
}

func TestAnalyze(t *testing.T) {
	grades := []Grade{
		{Date: "2025-01-15", GPA: GPA(3.2)},
		{Date: "2024-06-01", GPA: GPA(3.6)},
		{Date: "2024-01-15", GPA: GPA(2.8)},
	}

	a := Analyze(grades)
	assert.Equal(t, 3, a.Count)
	assert.InDelta(t, 3.6, a.Highest, 1e-9)
	assert.InDelta(t, 2.8, a.Lowest, 1e-9)
	assert.InDelta(t, 3.2, a.Average, 1e-9)
	assert.InDelta(t, 3.2, a.Current, 1e-9)
	assert.InDelta(t, 3.6, a.Previous, 1e-9)
	assert.Equal(t, TrendDown, a.Trend)
}

func TestAnalyzeSingleGradeTrendsUp(t *testing.T) {
	a := Analyze([]Grade{{Date: "2025-01-15", GPA: GPA(3.0)}})
	assert.Equal(t, TrendUp, a.Trend)
	assert.Equal(t, a.Current, a.Previous)
}

func TestPatchApplyCopiesGPA(t *testing.T) {
	orig := Grade{GPA: GPA(3.0), Semester: "Fall"}
	sem := "Spring"

	got := Patch{Semester: &sem}.Apply(orig)
	*got.GPA = 1.0

	assert.Equal(t, "Spring", got.Semester)
	assert.InDelta(t, 3.0, orig.Value(), 1e-9)
}
