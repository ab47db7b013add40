package ingest

// Size thresholds that select the parsing strategy. Pure decision
// functions; ParseSmart consults them and nothing else does.

const (
	// StreamingThresholdBytes is the size at and above which input is parsed
	// in chunks rather than as a single buffer.
	StreamingThresholdBytes = 1 << 20 // 1 MiB

	// WorkerThresholdBytes is the size above which the streaming loop runs
	// in a dedicated goroutine.
	WorkerThresholdBytes = 5 << 20 // 5 MiB
)

// ShouldUseStreaming reports whether an input of sizeBytes should be parsed
// in chunks. The boundary is inclusive on the streaming side.
func ShouldUseStreaming(sizeBytes int64) bool {
	return sizeBytes >= StreamingThresholdBytes
}

// ShouldUseWorker reports whether the streaming loop for an input of
// sizeBytes should be delegated to its own goroutine.
func ShouldUseWorker(sizeBytes int64) bool {
	return sizeBytes > WorkerThresholdBytes
}
