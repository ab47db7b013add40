package ingest

// chunkreader.go reads the input as a sequence of record-aligned chunks.
//
// Each Next call performs one physical read of roughly chunkSize bytes.
// Text after the last record-ending newline is held back and prepended to
// the next chunk instead of being parsed early, and while a quoted field is
// open at a chunk boundary the reader keeps absorbing chunks into the same
// carry until the quote closes. A single logical record may therefore span
// many physical chunks, and chunk size never changes parse output.

import "io"

// DefaultChunkSize is the physical read size when ParseOptions.ChunkSize is
// unset. Hundreds of KB keeps per-chunk latency low without excessive read
// calls.
const DefaultChunkSize = 256 * 1024

// quoteState mirrors the quote transitions of recordScanner so the cut
// point between chunks always lands on a record boundary the scanner
// agrees with. The two must advance byte for byte identically; the
// chunk-size invariance tests cover the pairing.
type quoteState struct {
	inQuotes     bool
	pendingQuote bool
	pendingCR    bool
	quotedField  bool
	fieldStarted bool
}

// advance consumes one byte and reports whether it ended a record, which
// makes the position after it a safe cut point.
func (q *quoteState) advance(b byte) bool {
	if q.inQuotes {
		if q.pendingQuote {
			q.pendingQuote = false
			if b == '"' {
				return false
			}
			q.inQuotes = false
		} else {
			if b == '"' {
				q.pendingQuote = true
			}
			return false
		}
	}

	if q.pendingCR {
		q.pendingCR = false
		if b == '\n' {
			q.endRecord()
			return true
		}
		q.fieldStarted = true
	}

	switch b {
	case '"':
		if !q.fieldStarted && !q.quotedField {
			q.inQuotes = true
			q.quotedField = true
		} else {
			q.fieldStarted = true
		}
	case ',':
		q.fieldStarted = false
		q.quotedField = false
	case '\r':
		q.pendingCR = true
	case '\n':
		q.endRecord()
		return true
	default:
		q.fieldStarted = true
	}
	return false
}

func (q *quoteState) endRecord() {
	q.fieldStarted = false
	q.quotedField = false
}

// ChunkReader delivers the input as an ordered sequence of chunks, each
// containing only complete records. Reads are strictly sequential and
// exhaust the source exactly once.
type ChunkReader struct {
	r         io.Reader
	chunkSize int
	scratch   []byte

	carry     []byte
	q         quoteState
	out       []byte
	bytesRead int64
	done      bool
	err       error
}

// NewChunkReader returns a reader that pulls chunkSize bytes per physical
// read from r.
func NewChunkReader(r io.Reader, chunkSize int) *ChunkReader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ChunkReader{r: r, chunkSize: chunkSize, scratch: make([]byte, chunkSize)}
}

// Next performs one physical read and reports whether a chunk is available
// via Records. It returns false at end of input or on a read error (see
// Err). A true return with empty Records means a record is still being
// absorbed across chunk boundaries.
func (cr *ChunkReader) Next() bool {
	if cr.done || cr.err != nil {
		return false
	}

	n, err := io.ReadFull(cr.r, cr.scratch)
	cr.bytesRead += int64(n)

	atEOF := false
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		atEOF = true
	default:
		cr.err = err
		return false
	}

	// Track the cut point after the last record-ending newline while
	// absorbing the new bytes into the carry.
	lastSafe := -1
	for i := 0; i < n; i++ {
		if cr.q.advance(cr.scratch[i]) {
			lastSafe = i
		}
	}
	cr.carry = append(cr.carry, cr.scratch[:n]...)

	if atEOF {
		cr.done = true
		cr.out = cr.carry
		cr.carry = nil
		return len(cr.out) > 0
	}

	if lastSafe < 0 {
		cr.out = nil
		return true
	}

	cut := len(cr.carry) - n + lastSafe + 1
	cr.out = cr.carry[:cut]
	cr.carry = append([]byte(nil), cr.carry[cut:]...)
	return true
}

// Records returns the complete-record bytes produced by the last Next call.
// The slice is only valid until the next call.
func (cr *ChunkReader) Records() []byte { return cr.out }

// Err returns the read error that stopped the sequence, or nil on a clean
// end of input.
func (cr *ChunkReader) Err() error { return cr.err }

// BytesRead returns the cumulative number of bytes consumed from the
// source.
func (cr *ChunkReader) BytesRead() int64 { return cr.bytesRead }

// countingReader tracks raw bytes consumed from the underlying source. It
// sits below any decoding wrappers so progress reflects position in the
// original file, not in the decoded stream.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
