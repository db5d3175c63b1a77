package model

// Counts is the per-token ring metadata.
type Counts struct {
	// Index is the physical slot of the most recent write.
	Index uint64 `json:"index"`
	// Count is the total number of writes ever performed; monotone and may
	// exceed Capacity once the ring wraps.
	Count uint64 `json:"count"`
	// Capacity is the ring size. Only grows.
	Capacity uint64 `json:"capacity"`
	// LastTimestamp is the timestamp of the most recent write.
	LastTimestamp uint64 `json:"last_timestamp"`
}
