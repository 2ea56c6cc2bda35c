package port

// CartMetrics records cart store activity. Implementations must tolerate
// concurrent use.
type CartMetrics interface {
	// IncMutation counts a committed mutation by operation name.
	IncMutation(op string)

	// IncClamp counts a quantity reduced to satisfy a stock cap.
	IncClamp(op string)

	// IncStorageFailure counts a failed durable read or write.
	IncStorageFailure(op string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) IncMutation(string)       {}
func (NopMetrics) IncClamp(string)          {}
func (NopMetrics) IncStorageFailure(string) {}
