package ai

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gmsas95/healthrisk/internal/health"
)

const fence = "```"

const promptIntro = "You are an expert medical AI assistant analyzing patient health data to predict potential health risks and recommend medical tests."

const promptTask = `**TASK:**
Based on this comprehensive patient data, provide:

1. **Health Risk Predictions** (up to 5 most significant):
   - Identify potential health conditions or risks
   - Assign risk score (0-100) and level (low/moderate/high/critical)
   - Explain contributing factors
   - Provide specific recommendations

2. **Recommended Medical Tests** (prioritized list):
   - Test name and category
   - Priority level (low/medium/high/urgent)
   - Reason for recommendation
   - Recommended frequency

3. **Risk Assessments** (for major categories):
   - Cardiovascular risk
   - Diabetes risk
   - Mental health risk
   - Sleep disorder risk
   - Overall health trend (improving/stable/declining)`

// OutputSchema is the JSON shape the model is asked to produce.
const OutputSchema = `{
  "predictions": [
    {
      "condition_name": "string",
      "risk_score": number,
      "risk_level": "low|moderate|high|critical",
      "description": "string",
      "recommendations": ["string"],
      "contributing_factors": {"factor": "description"}
    }
  ],
  "testRecommendations": [
    {
      "test_name": "string",
      "test_category": "routine_screening|diagnostic|preventive|follow_up",
      "priority_level": "low|medium|high|urgent",
      "reason": "string",
      "recommended_frequency": "string"
    }
  ],
  "riskAssessments": [
    {
      "assessment_type": "cardiovascular|diabetes|mental_health|sleep_disorder",
      "overall_risk_score": number,
      "risk_level": "low|moderate|high|critical",
      "trend_direction": "improving|stable|declining|unknown",
      "recommendations": ["string"]
    }
  ],
  "summary": "Brief overall health assessment and key insights"
}`

// BuildPrompt renders the analysis prompt for a profile. The output is a
// pure function of the profile.
func BuildPrompt(p health.PatientProfile) string {
	var sb strings.Builder

	sb.WriteString(promptIntro)
	sb.WriteString("\n\n**PATIENT PROFILE:**\n\n")

	d := p.Demographics
	sb.WriteString("Demographics:\n")
	fmt.Fprintf(&sb, "- Age: %s\n", intOrUnknown(d.Age))
	fmt.Fprintf(&sb, "- Gender: %s\n", stringOrUnknown(d.Gender))
	fmt.Fprintf(&sb, "- BMI: %s\n", bmiOrUnknown(d.BMI))
	fmt.Fprintf(&sb, "- Blood Group: %s\n\n", stringOrUnknown(d.BloodGroup))

	h := p.MedicalHistory
	sb.WriteString("Medical History:\n")
	fmt.Fprintf(&sb, "- Known Diseases: %s\n", h.Diseases)
	fmt.Fprintf(&sb, "- Allergies: %s\n", h.Allergies)
	fmt.Fprintf(&sb, "- Current Medications: %s\n", h.Medications)
	fmt.Fprintf(&sb, "- Past Surgeries: %s\n", h.Surgeries)
	fmt.Fprintf(&sb, "- Additional Notes: %s\n\n", h.Notes)

	if l := p.Lifestyle; l != nil {
		sb.WriteString("Lifestyle Metrics (recent average):\n")
		fmt.Fprintf(&sb, "- Sleep: %s hours/night (%s%% of target)\n", health.FormatNumber(l.AvgSleepHours), health.FormatNumber(l.SleepProgressPct))
		fmt.Fprintf(&sb, "- Physical Activity: %s steps/day (%s%% of target)\n", health.FormatNumber(l.AvgSteps), health.FormatNumber(l.ActivityProgressPct))
		fmt.Fprintf(&sb, "- Hydration: %s cups/day\n", health.FormatNumber(l.AvgHydration))
		fmt.Fprintf(&sb, "- Caloric Intake: %s calories/day\n\n", health.FormatNumber(l.AvgCalories))
	} else {
		sb.WriteString("Lifestyle data not available\n\n")
	}

	if m := p.MentalHealth; m != nil {
		sb.WriteString("Mental Health Scores (0-100 scale):\n")
		fmt.Fprintf(&sb, "- Mood Stability: %s\n", floatOrUnknown(m.MoodStability))
		fmt.Fprintf(&sb, "- Stress Resilience: %s\n", floatOrUnknown(m.StressResilience))
		fmt.Fprintf(&sb, "- Burnout Risk: %s\n", floatOrUnknown(m.BurnoutRisk))
		fmt.Fprintf(&sb, "- Social Connection: %s\n", floatOrUnknown(m.SocialConnection))
		fmt.Fprintf(&sb, "- Cognitive Fatigue: %s\n", floatOrUnknown(m.CognitiveFatigue))
		fmt.Fprintf(&sb, "- Overall Wellbeing: %s\n\n", floatOrUnknown(m.OverallWellbeing))
	} else {
		sb.WriteString("Mental health data not available\n\n")
	}

	if len(p.Documents) > 0 {
		sb.WriteString("Medical Documents Available:\n")
		for _, doc := range p.Documents {
			fmt.Fprintf(&sb, "- %s: %s", doc.Category, doc.FileName)
			if doc.Description != "" {
				fmt.Fprintf(&sb, " (%s)", doc.Description)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No medical documents uploaded\n\n")
	}

	sb.WriteString(promptTask)
	sb.WriteString("\n\n**OUTPUT FORMAT (JSON):**\n")
	sb.WriteString(fence + "json\n")
	sb.WriteString(OutputSchema)
	sb.WriteString("\n" + fence + "\n\n")
	sb.WriteString("Provide ONLY the JSON output, no additional text.")

	return sb.String()
}

func intOrUnknown(v *int) string {
	if v == nil {
		return "Unknown"
	}
	return strconv.Itoa(*v)
}

func floatOrUnknown(v *float64) string {
	if v == nil {
		return "Unknown"
	}
	return health.FormatNumber(*v)
}

func bmiOrUnknown(v *float64) string {
	if v == nil {
		return "Unknown"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func stringOrUnknown(v *string) string {
	if v == nil || *v == "" {
		return "Unknown"
	}
	return *v
}
