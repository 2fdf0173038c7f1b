package grade

// Trend compares the two most recent grades.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendNone Trend = "none"
)

// Analytics is the summary shown next to the grade table.
type Analytics struct {
	Count    int     `json:"count"`
	Highest  float64 `json:"highest"`
	Lowest   float64 `json:"lowest"`
	Average  float64 `json:"average"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Trend    Trend   `json:"trend"`
}

// Analyze computes the summary in one pass over grades, which must already be
// ordered newest first. With a single grade the previous value equals the
// current one and the trend reads as up.
func Analyze(grades []Grade) Analytics {
	if len(grades) == 0 {
		return Analytics{Trend: TrendNone}
	}

	a := Analytics{
		Count:   len(grades),
		Highest: grades[0].Value(),
		Lowest:  grades[0].Value(),
	}

	var sum float64
	for _, g := range grades {
		v := g.Value()
		sum += v
		if v > a.Highest {
			a.Highest = v
		}
		if v < a.Lowest {
			a.Lowest = v
		}
	}
	a.Average = sum / float64(len(grades))

	a.Current = grades[0].Value()
	a.Previous = a.Current
	if len(grades) > 1 {
		a.Previous = grades[1].Value()
	}

	if a.Current >= a.Previous {
		a.Trend = TrendUp
	} else {
		a.Trend = TrendDown
	}
	return a
}
