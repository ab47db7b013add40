package ingest

// ParseOptions configures a single parse invocation. Options are read once
// at the start of the call and never mutated by the parser.
type ParseOptions struct {
	// ChunkSize is the size of each physical read in bytes. Zero or negative
	// selects DefaultChunkSize. Chunk size changes timing and progress
	// cadence only, never the parsed output.
	ChunkSize int

	// OnProgress, when set, is invoked after each physical read.
	OnProgress func(ProgressEvent)

	// EncodingHint declares the source encoding ("windows-1251",
	// "iso-8859-1", ...). Empty means detect from the content.
	EncodingHint string

	// StrictFieldCount rejects rows whose field count differs from the
	// header instead of coercing them.
	StrictFieldCount bool
}

// ProgressEvent reports cumulative parse progress. All values are
// non-decreasing across one parse invocation; the final event has
// BytesRead == TotalBytes.
type ProgressEvent struct {
	BytesRead  int64
	TotalBytes int64
	RowsParsed int
}

// Row maps header names to field values for one record. Fields past the
// header width appear under synthetic "_extra_<n>" keys; when header names
// repeat, the last occurrence's value wins (Headers still lists duplicates
// verbatim).
type Row map[string]string

// ParseResult is the complete output of one parse. Headers preserve the
// first record's field order; Rows preserve input order regardless of chunk
// size or parsing strategy.
type ParseResult struct {
	Headers        []string
	Rows           []Row
	EncodingIssues EncodingIssueReport
}

// EncodingIssueReport describes corruption that was found (and usually
// repaired) while parsing. It is purely informational: encoding trouble
// never fails a parse.
type EncodingIssueReport struct {
	HasIssues       bool
	Issues          []string
	Recommendations []string
}
