package domain

import (
	"fmt"
	"sort"
	"time"
)

type TrackingFrequency string

const (
	FrequencyDaily   TrackingFrequency = "DAILY"
	FrequencyWeekly  TrackingFrequency = "WEEKLY"
	FrequencyMonthly TrackingFrequency = "MONTHLY"
	FrequencyManual  TrackingFrequency = "MANUAL"
)

// ParseTrackingFrequency defaults the empty string to MANUAL.
func ParseTrackingFrequency(s string) (TrackingFrequency, error) {
	if s == "" {
		return FrequencyManual, nil
	}
	switch f := TrackingFrequency(s); f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyManual:
		return f, nil
	default:
		return "", fmt.Errorf("unknown tracking frequency %q", s)
	}
}

// MissionPoint groups KPIs under one of the church's mission statements.
type MissionPoint struct {
	ID          string
	Name        string
	Description string
	Order       int

	KPIs []KPI

	CreatedAt time.Time
	UpdatedAt time.Time
}

type KPI struct {
	ID                string
	MissionPointID    string
	Name              string
	Description       string
	TrackingFrequency TrackingFrequency
	Location          string
	Category          string
	Subcategory       string
	Metadata          map[string]any

	Records []KPIRecord // newest first

	CreatedAt time.Time
	UpdatedAt time.Time
}

// KPIRecord is one measured value of a KPI.
type KPIRecord struct {
	ID    string
	KPIID string
	Value float64
	Date  time.Time
	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Dashboard combines the KPI tree with the follow-up counters.
type Dashboard struct {
	MissionPoints []MissionPoint
	Stats         Stats
}

type TrendGrouping string

const (
	GroupByDay   TrendGrouping = "day"
	GroupByWeek  TrendGrouping = "week"
	GroupByMonth TrendGrouping = "month"
)

// ParseTrendGrouping defaults the empty string to day.
func ParseTrendGrouping(s string) (TrendGrouping, error) {
	if s == "" {
		return GroupByDay, nil
	}
	switch g := TrendGrouping(s); g {
	case GroupByDay, GroupByWeek, GroupByMonth:
		return g, nil
	default:
		return "", fmt.Errorf("unknown trend grouping %q", s)
	}
}

type TrendPoint struct {
	Period string
	Value  float64
}

// TrendPeriod names the bucket t falls into. Weeks are ISO weeks, so a week
// spanning a month or year boundary stays one bucket.
func TrendPeriod(t time.Time, g TrendGrouping, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	switch g {
	case GroupByMonth:
		return t.Format("2006-01")
	case GroupByWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return t.Format("2006-01-02")
	}
}

// KPITrends averages the record values per period, oldest period first.
func KPITrends(records []KPIRecord, g TrendGrouping, loc *time.Location) []TrendPoint {
	sorted := make([]KPIRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	type bucket struct {
		sum float64
		n   int
	}
	var order []string
	buckets := make(map[string]*bucket)
	for _, r := range sorted {
		key := TrendPeriod(r.Date, g, loc)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			order = append(order, key)
		}
		b.sum += r.Value
		b.n++
	}

	out := make([]TrendPoint, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		out = append(out, TrendPoint{Period: key, Value: b.sum / float64(b.n)})
	}
	return out
}
