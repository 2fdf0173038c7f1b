// Package grade contains semester GPA records and the analytics derived from them.
package grade

import (
	"math"
	"sort"
	"strings"

	"github.com/athlete-hub/athlete-hub/pkg/timeutil"
)

// MaxGPA is the top of the grading scale.
const MaxGPA = 4.0

// Grade is one recorded GPA.
type Grade struct {
	ID        int64    `json:"id"`
	Year      int      `json:"year" validate:"required,gte=1,lte=9999"`
	Semester  string   `json:"semester" validate:"notblank,max=50"`
	GPA       *float64 `json:"gpa" validate:"required,gte=0,lte=4"`
	Date      string   `json:"date" validate:"required,calendardate"`
	Notes     string   `json:"notes,omitempty" validate:"max=2000"`
	Timestamp int64    `json:"timestamp"`
}

// Value returns the GPA or NaN when unset.
func (g Grade) Value() float64 {
	if g.GPA == nil {
		return math.NaN()
	}
	return *g.GPA
}

// Normalize trims free-text fields.
func (g *Grade) Normalize() {
	g.Semester = strings.TrimSpace(g.Semester)
	g.Date = strings.TrimSpace(g.Date)
	g.Notes = strings.TrimSpace(g.Notes)
}

// GPA returns a pointer to v for building grades.
func GPA(v float64) *float64 {
	return &v
}

// Patch holds the fields an edit may change. Nil fields are left as is.
type Patch struct {
	Year     *int
	Semester *string
	GPA      *float64
	Date     *string
	Notes    *string
}

// Apply returns a copy of g with the patch applied.
func (p Patch) Apply(g Grade) Grade {
	if p.Year != nil {
		g.Year = *p.Year
	}
	if p.Semester != nil {
		g.Semester = *p.Semester
	}
	if p.GPA != nil {
		g.GPA = GPA(*p.GPA)
	} else if g.GPA != nil {
		g.GPA = GPA(*g.GPA)
	}
	if p.Date != nil {
		g.Date = *p.Date
	}
	if p.Notes != nil {
		g.Notes = *p.Notes
	}
	return g
}

// SortByDateDesc orders grades newest first. Grades on the same date are
// ordered by recording timestamp, newest first.
func SortByDateDesc(grades []Grade) {
	sort.SliceStable(grades, func(i, j int) bool {
		return newer(grades[i], grades[j])
	})
}

// IsSortedByDateDesc reports whether grades are in SortByDateDesc order.
func IsSortedByDateDesc(grades []Grade) bool {
	for i := 1; i < len(grades); i++ {
		if newer(grades[i], grades[i-1]) {
			return false
		}
	}
	return true
}

func newer(a, b Grade) bool {
	da, errA := timeutil.Parse(a.Date)
	db, errB := timeutil.Parse(b.Date)
	switch {
	case errA == nil && errB == nil && !da.Equal(db):
		return da.After(db)
	case errA != nil && errB == nil:
		return false
	case errA == nil && errB != nil:
		return true
	}
	return a.Timestamp > b.Timestamp
}
