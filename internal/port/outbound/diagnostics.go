package outbound

// DiagnosticSink stores reports about assets the extractor could not parse.
// Once full, further reports are dropped.
type DiagnosticSink interface {
	// Report stores a report and returns false when it was dropped.
	Report(assetName string, content []byte, err error) bool
	IsFull() bool
	Dir() string
}
