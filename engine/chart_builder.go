package engine

import (
	"fmt"
	"strconv"
)

// ============================================================================
// CHART BUILDER — Produces the dashboard's ChartConfigs from a ResultBundle
// ============================================================================
// Six figures, always in the same order. Outcome series are coloured with
// the palette's success (attended) and danger (no-show) colours.
// ============================================================================

// Chart identifiers, stable across queries.
const (
	ChartByMonth       = "appointments-by-month"
	ChartAgeHistogram  = "age-distribution"
	ChartOutcomeSplit  = "outcome-proportion"
	ChartByWeekday     = "weekday-heatmap"
	ChartWaitingDays   = "waiting-days"
	ChartByScholarship = "scholarship"
)

// BuildCharts produces the six dashboard charts for a bundle.
func BuildCharts(b *ResultBundle, p Palette) []ChartConfig {
	if b == nil {
		return nil
	}
	return []ChartConfig{
		buildMonthChart(b, p),
		buildAgeChart(b, p),
		buildOutcomeChart(b, p),
		buildWeekdayChart(b, p),
		buildWaitingChart(b, p),
		buildScholarshipChart(b, p),
	}
}

func buildMonthChart(b *ResultBundle, p Palette) ChartConfig {
	labels := make([]string, len(b.ByMonth))
	counts := make([]OutcomeCounts, len(b.ByMonth))
	for i, r := range b.ByMonth {
		labels[i], counts[i] = r.Month, r.OutcomeCounts
	}
	return ChartConfig{
		ID:         ChartByMonth,
		ChartType:  "bar",
		Title:      "Appointments and No-Shows by Month",
		XAxis:      "Month",
		YAxis:      "Number of Appointments",
		BarMode:    "group",
		Series:     outcomeSeries(labels, counts, p),
		Colors:     outcomeColors(p),
		ShowLegend: true,
		ShowGrid:   true,
	}
}

func buildAgeChart(b *ResultBundle, p Palette) ChartConfig {
	h := b.AgeHistogram
	labels := make([]string, len(h.Bins))
	counts := make([]OutcomeCounts, len(h.Bins))
	for i, bin := range h.Bins {
		labels[i] = fmt.Sprintf("%g-%g", RoundTo2(bin.Lower), RoundTo2(bin.Upper))
		counts[i] = bin.OutcomeCounts
	}
	return ChartConfig{
		ID:         ChartAgeHistogram,
		ChartType:  "histogram",
		Title:      "Age Distribution of Appointments",
		XAxis:      "Age",
		YAxis:      "Number of Appointments",
		BarMode:    "overlay",
		Series:     outcomeSeries(labels, counts, p),
		Colors:     outcomeColors(p),
		Boxes:      h.Marginal,
		ShowLegend: true,
		ShowGrid:   true,
	}
}

func buildOutcomeChart(b *ResultBundle, p Palette) ChartConfig {
	o := b.Outcomes
	return ChartConfig{
		ID:        ChartOutcomeSplit,
		ChartType: "pie",
		Title:     "Proportion of Appointments vs. No-Shows",
		Hole:      0.3,
		Series: []ChartSeries{{
			Name: "Appointments",
			Data: []ChartPoint{
				{Label: o.Attended.Label, Value: float64(o.Attended.Count)},
				{Label: o.NoShow.Label, Value: float64(o.NoShow.Count)},
			},
		}},
		Colors:     outcomeColors(p),
		ShowLegend: true,
		ShowGrid:   false,
	}
}

func buildWeekdayChart(b *ResultBundle, p Palette) ChartConfig {
	labels := make([]string, len(b.ByWeekday))
	counts := make([]OutcomeCounts, len(b.ByWeekday))
	for i, r := range b.ByWeekday {
		labels[i], counts[i] = r.Day, r.OutcomeCounts
	}
	return ChartConfig{
		ID:         ChartByWeekday,
		ChartType:  "heatmap",
		Title:      "Appointments by Day of Week and No-Show Status",
		XAxis:      "No-Show",
		YAxis:      "Day of Week",
		Series:     outcomeSeries(labels, counts, p),
		Colors:     outcomeColors(p), // low → high colour scale
		ShowLegend: false,
		ShowGrid:   false,
	}
}

func buildWaitingChart(b *ResultBundle, p Palette) ChartConfig {
	series := make([]ChartSeries, 0, len(b.WaitingDays))
	for _, s := range b.WaitingDays {
		noShow := s.Outcome.Label() == "Yes"
		series = append(series, ChartSeries{
			Name:  s.Outcome.Label(),
			Color: p.OutcomeColor(noShow),
			Data: []ChartPoint{
				{Label: "min", Value: s.Min},
				{Label: "q1", Value: s.Q1},
				{Label: "median", Value: s.Median},
				{Label: "q3", Value: s.Q3},
				{Label: "max", Value: s.Max},
			},
		})
	}
	return ChartConfig{
		ID:         ChartWaitingDays,
		ChartType:  "box",
		Title:      "Waiting Days Distribution by No-Show Status",
		XAxis:      "No-Show",
		YAxis:      "Days Between Scheduling and Appointment",
		Series:     series,
		Colors:     outcomeColors(p),
		Boxes:      b.WaitingDays,
		ShowLegend: true,
		ShowGrid:   true,
	}
}

func buildScholarshipChart(b *ResultBundle, p Palette) ChartConfig {
	labels := make([]string, len(b.ByScholarship))
	counts := make([]OutcomeCounts, len(b.ByScholarship))
	for i, r := range b.ByScholarship {
		labels[i], counts[i] = strconv.FormatBool(r.Scholarship), r.OutcomeCounts
	}
	return ChartConfig{
		ID:         ChartByScholarship,
		ChartType:  "bar",
		Title:      "No-Shows by Scholarship Status",
		XAxis:      "Has Scholarship",
		YAxis:      "Count",
		BarMode:    "group",
		Series:     outcomeSeries(labels, counts, p),
		Colors:     outcomeColors(p),
		ShowLegend: true,
		ShowGrid:   true,
	}
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

// outcomeSeries builds the "No" (attended) and "Yes" (no-show) series over
// a shared category axis.
func outcomeSeries(labels []string, counts []OutcomeCounts, p Palette) []ChartSeries {
	attended := make([]ChartPoint, len(labels))
	noShow := make([]ChartPoint, len(labels))
	for i, label := range labels {
		attended[i] = ChartPoint{Label: label, Value: float64(counts[i].Attended)}
		noShow[i] = ChartPoint{Label: label, Value: float64(counts[i].NoShow)}
	}
	return []ChartSeries{
		{Name: "No", Data: attended, Color: p.Success},
		{Name: "Yes", Data: noShow, Color: p.Danger},
	}
}

func outcomeColors(p Palette) []string {
	return []string{p.Success, p.Danger}
}
