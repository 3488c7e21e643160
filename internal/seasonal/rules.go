package seasonal

// Monitoring recommendation messages, selected by the first matching
// rule in Recommend.
const (
	RecCriticalMonitoring = "CRITICAL: Increase monitoring - breeding season with high threat level"
	RecIncreaseMonitoring = "Increase monitoring frequency - active breeding season"
	RecEnhancedSurveil    = "Enhanced surveillance recommended - high threat period"
	RecSurveyOpportunity  = "Optimal time for population surveys and data collection"
	RecReducedMonitoring  = "Reduced monitoring acceptable - natural low activity period"
	RecStandardMonitoring = "Continue standard monitoring protocols"
	RecFallbackMonitoring = "Continue regular monitoring"
)

// Recommend derives the monitoring recommendation from the decoded
// predictions. The rules are ordered; the first match wins. activity and
// threat are the raw lowercase labels from the models.
func Recommend(breeding bool, threat, activity string) string {
	switch {
	case breeding && threat == "high":
		return RecCriticalMonitoring
	case breeding:
		return RecIncreaseMonitoring
	case threat == "high":
		return RecEnhancedSurveil
	case activity == "high":
		return RecSurveyOpportunity
	case activity == "low":
		return RecReducedMonitoring
	default:
		return RecStandardMonitoring
	}
}
