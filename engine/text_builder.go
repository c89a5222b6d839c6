package engine

import (
	"fmt"
	"time"
)

// ============================================================================
// TEXT BUILDER — Metric cards and period labels
// ============================================================================

// Metric card keys.
const (
	CardUniquePatients = "total_patients"
	CardAppointments   = "total_appointments"
	CardNoShows        = "total_no_shows"
	CardNoShowRate     = "no_show_rate"
)

// BuildMetricCards formats the four headline numbers.
func BuildMetricCards(m Metrics, p Palette) []MetricCard {
	return []MetricCard{
		{
			Key:      CardUniquePatients,
			Label:    "Total Patients",
			Value:    FormatInt(m.UniquePatients),
			RawValue: float64(m.UniquePatients),
			Color:    p.Primary,
		},
		{
			Key:      CardAppointments,
			Label:    "Total Appointments",
			Value:    FormatInt(m.TotalAppointments),
			RawValue: float64(m.TotalAppointments),
			Color:    p.Info,
		},
		{
			Key:      CardNoShows,
			Label:    "No-Shows",
			Value:    FormatInt(m.TotalNoShows),
			RawValue: float64(m.TotalNoShows),
			Color:    p.Danger,
		},
		{
			Key:      CardNoShowRate,
			Label:    "No-Show Rate",
			Value:    FormatPercent(m.NoShowRate),
			RawValue: m.NoShowRate,
			Color:    p.Warning,
		},
	}
}

// BuildDashboardView renders a bundle into everything a page needs.
func BuildDashboardView(b *ResultBundle, p Palette) DashboardView {
	if b == nil {
		return DashboardView{Period: "No data", Cards: []MetricCard{}, Charts: []ChartConfig{}}
	}
	return DashboardView{
		Period: DerivePeriod(b.ByMonth),
		Cards:  BuildMetricCards(b.Metrics, p),
		Charts: BuildCharts(b, p),
		Table:  BuildSampleTable(b),
	}
}

// Summarise is a one-line text form of the headline metrics.
func Summarise(b *ResultBundle) string {
	if b == nil {
		return "No selection."
	}
	m := b.Metrics
	return fmt.Sprintf("%s appointments from %s patients in %s; %s no-shows (%s).",
		FormatInt(m.TotalAppointments), FormatInt(m.UniquePatients), DerivePeriod(b.ByMonth),
		FormatInt(m.TotalNoShows), FormatPercent(m.NoShowRate))
}

// ============================================================================
// PERIOD HELPER
// ============================================================================

// DerivePeriod builds a human-readable period from ascending month rows.
func DerivePeriod(months []MonthRow) string {
	switch len(months) {
	case 0:
		return "No data"
	case 1:
		return formatMonth(months[0].Month)
	default:
		return fmt.Sprintf("%s – %s", formatMonth(months[0].Month), formatMonth(months[len(months)-1].Month))
	}
}

// formatMonth turns "2016-05" into "May 2016"; other keys pass through.
func formatMonth(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return t.Format("Jan 2006")
}

func formatTime(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}
