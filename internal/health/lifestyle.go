package health

import (
	"math"
	"time"
)

// Daily targets the progress percentages are measured against.
const (
	SleepTargetHours   = 8
	StepsTarget        = 10000
	HydrationTargetCup = 10
	CaloriesTarget     = 2000
)

// LifestyleWindow is how far back lifestyle entries are summarized.
const LifestyleWindow = 7 * 24 * time.Hour

type SleepEntry struct {
	Date          time.Time `json:"date" yaml:"date"`
	DurationHours float64   `json:"duration_hours" yaml:"duration_hours"`
}

type ActivityEntry struct {
	Date  time.Time `json:"date" yaml:"date"`
	Steps int       `json:"steps" yaml:"steps"`
}

type HydrationEntry struct {
	Date         time.Time `json:"date" yaml:"date"`
	CupsConsumed float64   `json:"cups_consumed" yaml:"cups_consumed"`
}

type NutritionEntry struct {
	Date     time.Time `json:"date" yaml:"date"`
	Calories float64   `json:"calories" yaml:"calories"`
}

// LifestyleEntries groups the tracker entries of one window.
type LifestyleEntries struct {
	Sleep     []SleepEntry     `json:"sleep,omitempty" yaml:"sleep,omitempty"`
	Activity  []ActivityEntry  `json:"activity,omitempty" yaml:"activity,omitempty"`
	Hydration []HydrationEntry `json:"hydration,omitempty" yaml:"hydration,omitempty"`
	Nutrition []NutritionEntry `json:"nutrition,omitempty" yaml:"nutrition,omitempty"`
}

// SummarizeLifestyle averages tracker entries into the lifestyle summary the
// profile builder consumes. Categories without entries average to zero.
func SummarizeLifestyle(entries LifestyleEntries) RawLifestyle {
	avgSleep := average(len(entries.Sleep), func(i int) float64 { return entries.Sleep[i].DurationHours })
	avgSteps := average(len(entries.Activity), func(i int) float64 { return float64(entries.Activity[i].Steps) })
	avgHydration := average(len(entries.Hydration), func(i int) float64 { return entries.Hydration[i].CupsConsumed })
	avgCalories := average(len(entries.Nutrition), func(i int) float64 { return entries.Nutrition[i].Calories })

	hasData := len(entries.Sleep) > 0 || len(entries.Activity) > 0 ||
		len(entries.Hydration) > 0 || len(entries.Nutrition) > 0

	return RawLifestyle{
		HasData: hasData,
		Stats: &LifestyleStats{
			AvgSleep:          roundTo(avgSleep, 1),
			AvgSteps:          math.Round(avgSteps),
			AvgHydration:      roundTo(avgHydration, 1),
			AvgCalories:       math.Round(avgCalories),
			SleepProgress:     progress(avgSleep, SleepTargetHours),
			StepsProgress:     progress(avgSteps, StepsTarget),
			HydrationProgress: progress(avgHydration, HydrationTargetCup),
			CaloriesProgress:  progress(avgCalories, CaloriesTarget),
		},
	}
}

func average(n int, value func(i int) float64) float64 {
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += value(i)
	}
	return sum / float64(n)
}

func progress(avg, target float64) float64 {
	return math.Min(100, math.Round(avg/target*100))
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
