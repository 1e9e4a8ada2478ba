package health

import (
	"strconv"
	"strings"
)

// LevelFor bands a score: >=75 critical, >=50 high, >=25 moderate, else low.
func LevelFor(score float64) RiskLevel {
	switch {
	case score >= 75:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskModerate
	default:
		return RiskLow
	}
}

// Clamp bounds a score to [0, 100].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// MentionsCondition reports whether the free-text diseases field mentions any
// of the given terms, case-insensitively.
func (h MedicalHistory) MentionsCondition(terms ...string) bool {
	diseases := strings.ToLower(h.Diseases)
	for _, term := range terms {
		if strings.Contains(diseases, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// FormatNumber renders a metric without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
