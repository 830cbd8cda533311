package hermes

const (
	SubjectAssessmentRequest = "geo.assessment.request"
	SubjectBatchRequest      = "geo.batch.request"

	// Requests that could not be scored at all (bad weights, bad location).
	SubjectAssessmentRejected = "geo.assessment.rejected"
	SubjectBatchRejected      = "geo.batch.rejected"

	QueueGroup = "georisk"

	StreamName   = "GEORISK_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

var StreamSubjects = []string{"geo.assessment.>", "geo.batch.>", "geo.provider.>"}

func SubjectAssessmentCompleted(id string) string { return "geo.assessment." + id + ".completed" }
func SubjectBatchCompleted(id string) string      { return "geo.batch." + id + ".completed" }
func SubjectProviderFallback(factor string) string {
	return "geo.provider." + factor + ".fallback"
}
