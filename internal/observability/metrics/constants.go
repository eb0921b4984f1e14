// Package metrics provides constants used across metric definitions.
package metrics

// Operation labels for feedback writes.
const (
	OpFeedbackCreate = "create"
	OpFeedbackUpdate = "update"
	OpFeedbackDelete = "delete"
)

// Status labels.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

// Submission outcome labels for the quick test controller.
const (
	OutcomeReconciled = "reconciled"
	OutcomeReverted   = "reverted"
	OutcomeRejected   = "rejected"
)

// Histogram bucket constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0
	// BucketStart100B is the starting bucket for 100 byte histograms (100B to ~100MB range).
	BucketStart100B = 100.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketFactor10 is the exponential growth factor of 10 for larger ranges.
	BucketFactor10 = 10

	// BucketCount6 defines 6 exponential buckets.
	BucketCount6 = 6
	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)
