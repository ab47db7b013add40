package ingest

// recordparser.go turns raw CSV bytes into records (rows of fields).
//
// The scanner is incremental: feed it buffers of complete records from the
// ChunkReader (streaming) or the whole input at once (non-streaming) and it
// emits one []string per record. Quoting follows RFC 4180: fields may be
// wrapped in double quotes, a doubled quote inside a quoted field is one
// literal quote, and commas and newlines inside quotes are content. Two
// leniencies for real-world files: a bare quote inside an unquoted field is
// literal, and a character straight after a closing quote is kept as field
// content.

import (
	"bytes"
	"fmt"
)

// emitFunc receives each completed record. Returning an error stops the
// scan and propagates to the caller.
type emitFunc func(record []string) error

// recordScanner is the incremental CSV tokenizer. Its quote transitions
// must stay in lockstep with quoteState in chunkreader.go; the chunk-size
// invariance tests guard the pairing.
type recordScanner struct {
	field  bytes.Buffer
	record []string

	inQuotes     bool
	pendingQuote bool // last byte was '"' inside a quoted field
	pendingCR    bool // last byte was '\r' outside quotes
	quotedField  bool // current field was opened with a quote
	sawQuoted    bool // any field of the current record was quoted
}

// write scans data, emitting every record it completes. State carries over
// between calls, so a record may be assembled across many writes.
func (sc *recordScanner) write(data []byte, emit emitFunc) error {
	for _, b := range data {
		if err := sc.step(b, emit); err != nil {
			return err
		}
	}
	return nil
}

func (sc *recordScanner) step(b byte, emit emitFunc) error {
	if sc.inQuotes {
		if sc.pendingQuote {
			sc.pendingQuote = false
			if b == '"' {
				// Doubled quote: one literal quote character.
				sc.field.WriteByte('"')
				return nil
			}
			// The pending quote closed the field; b belongs outside.
			sc.inQuotes = false
		} else {
			if b == '"' {
				sc.pendingQuote = true
			} else {
				sc.field.WriteByte(b)
			}
			return nil
		}
	}

	if sc.pendingCR {
		sc.pendingCR = false
		if b == '\n' {
			return sc.endRecord(emit)
		}
		// Bare CR is literal content, not a terminator.
		sc.field.WriteByte('\r')
	}

	switch b {
	case '"':
		if sc.field.Len() == 0 && !sc.quotedField {
			sc.inQuotes = true
			sc.quotedField = true
			sc.sawQuoted = true
		} else {
			sc.field.WriteByte('"')
		}
	case ',':
		sc.endField()
	case '\r':
		sc.pendingCR = true
	case '\n':
		return sc.endRecord(emit)
	default:
		sc.field.WriteByte(b)
	}
	return nil
}

// finish flushes the final record. Call exactly once, after the last write.
func (sc *recordScanner) finish(emit emitFunc) error {
	if sc.pendingQuote {
		// Closing quote at end of input.
		sc.pendingQuote = false
		sc.inQuotes = false
	}
	if sc.inQuotes {
		return &ParseError{Kind: KindMalformedQuoting, Detail: "input ends inside a quoted field"}
	}
	if sc.pendingCR {
		sc.pendingCR = false
		sc.field.WriteByte('\r')
	}
	if sc.field.Len() > 0 || len(sc.record) > 0 || sc.quotedField {
		return sc.endRecord(emit)
	}
	return nil
}

func (sc *recordScanner) endField() {
	sc.record = append(sc.record, sc.field.String())
	sc.field.Reset()
	sc.quotedField = false
}

func (sc *recordScanner) endRecord(emit emitFunc) error {
	sc.endField()
	rec := sc.record
	sc.record = nil
	quoted := sc.sawQuoted
	sc.sawQuoted = false

	// A bare newline is not a record.
	if len(rec) == 1 && rec[0] == "" && !quoted {
		return nil
	}
	return emit(rec)
}

// parseRecords runs the scanner over a self-contained buffer.
func parseRecords(buf []byte, emit emitFunc) error {
	var sc recordScanner
	if err := sc.write(buf, emit); err != nil {
		return err
	}
	return sc.finish(emit)
}

// rowBuilder assembles emitted records into headers and rows, applying the
// ragged-row policy and running every accepted field through the sanitizer.
// The first record of the input is always the header row.
type rowBuilder struct {
	strict    bool
	sanitizer *Sanitizer

	headerSet bool
	headers   []string
	rows      []Row
}

func newRowBuilder(strict bool, san *Sanitizer) *rowBuilder {
	return &rowBuilder{strict: strict, sanitizer: san}
}

func (rb *rowBuilder) add(record []string) error {
	if !rb.headerSet {
		rb.headerSet = true
		rb.headers = make([]string, len(record))
		for i, h := range record {
			rb.headers[i] = rb.sanitizer.CleanHeader(h)
		}
		return nil
	}

	if rb.strict && len(record) != len(rb.headers) {
		return &ParseError{
			Kind:   KindRowShapeMismatch,
			Row:    len(rb.rows) + 1,
			Detail: fmt.Sprintf("row has %d fields, header has %d", len(record), len(rb.headers)),
		}
	}

	row := make(Row, len(rb.headers))
	for i, h := range rb.headers {
		if i < len(record) {
			row[h] = rb.sanitizer.Clean(record[i])
		} else {
			// Pad missing trailing fields; known columns are never dropped.
			row[h] = ""
		}
	}
	for i := len(rb.headers); i < len(record); i++ {
		key := fmt.Sprintf("_extra_%d", i-len(rb.headers)+1)
		row[key] = rb.sanitizer.Clean(record[i])
	}
	rb.rows = append(rb.rows, row)
	return nil
}

func (rb *rowBuilder) result(san *Sanitizer) *ParseResult {
	headers := rb.headers
	if headers == nil {
		headers = []string{}
	}
	rows := rb.rows
	if rows == nil {
		rows = []Row{}
	}
	return &ParseResult{
		Headers:        headers,
		Rows:           rows,
		EncodingIssues: san.Report(),
	}
}
