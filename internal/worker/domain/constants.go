package domain

// Stage status constants shared by the clone and execution stages
const (
	StatusPending     = "PENDING"
	StatusSuccess     = "SUCCESS"
	StatusFailed      = "FAILED"
	StatusUnsupported = "UNSUPPORTED"
)
