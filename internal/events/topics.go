package events

// Topic constants for run-lifecycle events emitted by the valuation pipeline.
const (
	TopicValuationCompleted = "valuation.completed"
	TopicValuationFailed    = "valuation.failed"
	TopicCatalogLoaded      = "catalog.loaded"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicValuationCompleted,
		TopicValuationFailed,
		TopicCatalogLoaded,
	}
}
