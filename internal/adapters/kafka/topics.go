package kafka

// Topic definitions for Kafka event streaming
const (
	// Resolution lifecycle events
	TopicClaimTransitioned = "resolution.transitions"
	TopicClaimResolved     = "resolution.resolved"
	TopicClaimRefunded     = "resolution.refunded"
	TopicClaimFlagged      = "resolution.flagged"

	// Aggregation events
	TopicAggregationCompleted = "resolution.aggregations"
	TopicManipulationSuspect  = "resolution.manipulation_alerts"

	// Evidence events
	TopicEvidenceSubmitted = "evidence.submitted"
	TopicEvidenceReviewed  = "evidence.reviewed"

	// Dispute events
	TopicDisputeFiled    = "dispute.filed"
	TopicDisputeResolved = "dispute.resolved"

	// System events
	TopicWorkerFailed = "system.worker_failures"
)
