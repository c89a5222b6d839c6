package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/spektr-org/noshow/appointment"
)

// ============================================================================
// AGGREGATORS — Grouping, Counting and Distributions via RecordView
// ============================================================================
// All functions operate on RecordView for zero-copy access.
// Grouping produces SubViews (index lists into parent view).
// Records whose dimension is undefined never form a group; records whose
// measure is undefined are skipped by distribution statistics.
// ============================================================================

// GroupAndCount groups a view by one or two dimensions and counts members.
// Pipeline: group → count → sort.
func GroupAndCount(view RecordView, groupBy []string, sortBy string) []Group {
	if view.Len() == 0 || len(groupBy) == 0 {
		return nil
	}

	var groups []Group
	if len(groupBy) == 1 {
		groups = groupBySingle(view, groupBy[0])
	} else {
		groups = groupByMulti(view, groupBy)
	}

	for i := range groups {
		countGroup(&groups[i])
		for j := range groups[i].SubGroups {
			countGroup(&groups[i].SubGroups[j])
		}
	}

	SortGroups(groups, sortBy)
	return groups
}

// ============================================================================
// GROUPING
// ============================================================================

func groupBySingle(view RecordView, dimension string) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		key, ok := view.Dimension(i, dimension)
		if !ok {
			continue
		}
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{
			Key:   key,
			Label: key,
			View:  newSubView(view, grouped[key]),
		})
	}
	return groups
}

func groupByMulti(view RecordView, dimensions []string) []Group {
	if len(dimensions) < 2 {
		return groupBySingle(view, dimensions[0])
	}

	primaryGroups := groupBySingle(view, dimensions[0])
	for i := range primaryGroups {
		primaryGroups[i].SubGroups = groupBySingle(primaryGroups[i].View, dimensions[1])
	}
	return primaryGroups
}

func countGroup(group *Group) {
	group.Count = group.View.Len()
	group.Value = float64(group.Count)
}

// ============================================================================
// OUTCOME CROSSTABS
// ============================================================================

// crosstabOutcome counts attended/no-show per value of dimension.
func crosstabOutcome(view RecordView, dimension string) map[string]OutcomeCounts {
	out := make(map[string]OutcomeCounts)
	for _, g := range GroupAndCount(view, []string{dimension, DimOutcome}, "") {
		out[g.Key] = outcomeCounts(g)
	}
	return out
}

func outcomeCounts(g Group) OutcomeCounts {
	var c OutcomeCounts
	for _, sg := range g.SubGroups {
		c.set(sg.Key, sg.Count)
	}
	return c
}

// MonthOutcomeCounts returns one row per month present in the view, ascending.
func MonthOutcomeCounts(view RecordView) []MonthRow {
	groups := GroupAndCount(view, []string{DimMonth, DimOutcome}, SortChronological)
	rows := make([]MonthRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, MonthRow{Month: g.Key, OutcomeCounts: outcomeCounts(g)})
	}
	return rows
}

// WeekdayOutcomeCounts returns exactly one row per weekday in the given order.
// Weekdays absent from the view appear with zero counts.
func WeekdayOutcomeCounts(view RecordView, order []time.Weekday) []WeekdayRow {
	counts := crosstabOutcome(view, DimWeekday)
	rows := make([]WeekdayRow, 0, len(order))
	for _, d := range order {
		rows = append(rows, WeekdayRow{Day: d.String(), OutcomeCounts: counts[d.String()]})
	}
	return rows
}

// ScholarshipOutcomeCounts returns the rows for scholarship false and true.
func ScholarshipOutcomeCounts(view RecordView) []ScholarshipRow {
	counts := crosstabOutcome(view, DimScholarship)
	return []ScholarshipRow{
		{Scholarship: false, OutcomeCounts: counts[strconv.FormatBool(false)]},
		{Scholarship: true, OutcomeCounts: counts[strconv.FormatBool(true)]},
	}
}

// Proportions splits the view into no-show and attended shares.
// With an empty view both fractions are 0.
func Proportions(view RecordView) OutcomeProportions {
	noShows := int(SumMeasure(view, MeasureNoShow))
	total := view.Len()
	attended := total - noShows

	return OutcomeProportions{
		NoShow: OutcomeShare{
			Outcome:  appointment.OutcomeNoShow,
			Label:    appointment.OutcomeNoShow.Label(),
			Count:    noShows,
			Fraction: ratio(noShows, total),
		},
		Attended: OutcomeShare{
			Outcome:  appointment.OutcomeAttended,
			Label:    appointment.OutcomeAttended.Label(),
			Count:    attended,
			Fraction: ratio(attended, total),
		},
	}
}

// ComputeMetrics returns the four headline numbers for a view.
func ComputeMetrics(view RecordView) Metrics {
	total := view.Len()
	noShows := int(SumMeasure(view, MeasureNoShow))
	return Metrics{
		UniquePatients:    len(UniqueValues(view, DimPatient)),
		TotalAppointments: total,
		TotalNoShows:      noShows,
		NoShowRate:        ratio(noShows, total),
	}
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// ============================================================================
// HISTOGRAM
// ============================================================================

// Histogram bins a measure into equal-width bins with an outcome overlay.
// rng fixes the range; nil uses the min..max of the defined values.
// Bins are [Lower, Upper) except the last, which also includes Upper.
// Values outside a fixed range are not counted.
func Histogram(view RecordView, measure string, bins int, rng *[2]float64) AgeHistogram {
	if bins < 1 {
		bins = DefaultHistogramBins
	}

	values, noShow := collectByOutcome(view, measure)

	var lo, hi float64
	switch {
	case rng != nil:
		lo, hi = rng[0], rng[1]
	case len(values) == 0:
		return AgeHistogram{Bins: []HistogramBin{}}
	default:
		lo, hi = values[0], values[0]
		for _, v := range values[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi <= lo {
		hi = lo + 1
	}

	width := (hi - lo) / float64(bins)
	h := AgeHistogram{
		Min:      lo,
		Max:      hi,
		BinWidth: width,
		Bins:     make([]HistogramBin, bins),
	}
	for i := range h.Bins {
		h.Bins[i].Lower = lo + float64(i)*width
		h.Bins[i].Upper = lo + float64(i+1)*width
	}
	h.Bins[bins-1].Upper = hi

	for i, v := range values {
		if v < lo || v > hi {
			continue
		}
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if noShow[i] {
			h.Bins[idx].NoShow++
		} else {
			h.Bins[idx].Attended++
		}
	}
	return h
}

// ============================================================================
// DISTRIBUTIONS
// ============================================================================

// BoxByOutcome summarizes a measure separately for attended and no-show
// records. Both outcomes are always present.
func BoxByOutcome(view RecordView, measure string) []BoxSummary {
	values, noShow := collectByOutcome(view, measure)
	var attended, missed []float64
	for i, v := range values {
		if noShow[i] {
			missed = append(missed, v)
		} else {
			attended = append(attended, v)
		}
	}
	return []BoxSummary{
		Summarize(appointment.OutcomeAttended, attended),
		Summarize(appointment.OutcomeNoShow, missed),
	}
}

// Summarize computes box plot statistics. Quartiles interpolate linearly
// between closest ranks; whiskers are the most extreme values within
// 1.5·IQR of the quartiles. The input slice is sorted in place.
func Summarize(outcome appointment.Outcome, values []float64) BoxSummary {
	s := BoxSummary{Outcome: outcome, Count: len(values)}
	if len(values) == 0 {
		return s
	}

	sort.Float64s(values)
	var sum float64
	for _, v := range values {
		sum += v
	}

	s.Min = values[0]
	s.Max = values[len(values)-1]
	s.Q1 = quantile(values, 0.25)
	s.Median = quantile(values, 0.5)
	s.Q3 = quantile(values, 0.75)
	s.Mean = sum / float64(len(values))

	fence := 1.5 * (s.Q3 - s.Q1)
	lowFence, highFence := s.Q1-fence, s.Q3+fence
	s.LowerWhisker, s.UpperWhisker = s.Q1, s.Q3
	for _, v := range values {
		if v < lowFence || v > highFence {
			s.Outliers++
			continue
		}
		s.LowerWhisker = math.Min(s.LowerWhisker, v)
		s.UpperWhisker = math.Max(s.UpperWhisker, v)
	}
	return s
}

// quantile expects sorted input.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

// collectByOutcome returns the defined values of measure with a parallel
// no-show flag per value.
func collectByOutcome(view RecordView, measure string) ([]float64, []bool) {
	values := make([]float64, 0, view.Len())
	noShow := make([]bool, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		v, ok := view.Measure(i, measure)
		if !ok {
			continue
		}
		flag, _ := view.Measure(i, MeasureNoShow)
		values = append(values, v)
		noShow = append(noShow, flag == 1)
	}
	return values, noShow
}

// SumMeasure sums the defined values of a measure across a view.
func SumMeasure(view RecordView, measure string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		if v, ok := view.Measure(i, measure); ok {
			total += v
		}
	}
	return total
}

// ============================================================================
// SORTING
// ============================================================================

// SortChronological orders groups by ascending key. Month keys are YYYY-MM
// and sort lexicographically. Any other mode keeps first-seen order.
const SortChronological = "chronological"

// SortGroups sorts groups by the specified sort mode.
func SortGroups(groups []Group, sortBy string) {
	if sortBy == SortChronological {
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	}
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// FormatPercent renders a fraction as a percentage with one decimal, "0%" for zero.
func FormatPercent(fraction float64) string {
	if fraction == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", fraction*100)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// UniqueValues returns distinct defined values for a dimension across a view.
func UniqueValues(view RecordView, dimension string) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val, ok := view.Dimension(i, dimension)
		if ok && val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

