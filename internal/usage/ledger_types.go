package usage

import (
	"math"
	"time"
)

// DayLayout formats the per-day aggregation keys (UTC).
const DayLayout = "2006-01-02"

// LedgerData is the document persisted under the ledger key.
type LedgerData struct {
	Version   string          `json:"version"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// Event is one executed generation request.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Arm       string    `json:"arm"`
	Success   bool      `json:"success"`
	Cents     *float64  `json:"cents,omitempty"`
	Tokens    *float64  `json:"tokens,omitempty"`
}

// Day returns the UTC day bucket of the event.
func (e Event) Day() string {
	return e.Timestamp.UTC().Format(DayLayout)
}

// AggregatedStats holds counters broken down by arm and by day.
type AggregatedStats struct {
	Total    Counts                       `json:"total"`
	ByArm    map[string]Counts            `json:"by_arm"`
	ByDay    map[string]Counts            `json:"by_day"`
	ByDayArm map[string]map[string]Counts `json:"by_day_arm"`
}

func (a *AggregatedStats) ensure() {
	if a.ByArm == nil {
		a.ByArm = make(map[string]Counts)
	}
	if a.ByDay == nil {
		a.ByDay = make(map[string]Counts)
	}
	if a.ByDayArm == nil {
		a.ByDayArm = make(map[string]map[string]Counts)
	}
}

// Counts holds request and spend sums.
type Counts struct {
	Requests  int64   `json:"requests"`
	Successes int64   `json:"successes"`
	Cents     float64 `json:"cents"`
	Tokens    float64 `json:"tokens"`
}

// Add folds e into the counts. Unknown or invalid costs add nothing.
func (c *Counts) Add(e Event) {
	c.Requests++
	if e.Success {
		c.Successes++
	}
	c.Cents += spend(e.Cents)
	c.Tokens += spend(e.Tokens)
}

func spend(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0
	}
	return *v
}
