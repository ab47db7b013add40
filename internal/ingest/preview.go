package ingest

// preview.go provides a read-only look at the head of a file, used by
// upload UIs to show column mappings before committing to a full parse.

import (
	"context"
	"errors"
	"io"
)

// DefaultPreviewRows is how many data rows Preview returns when maxRows is
// not positive.
const DefaultPreviewRows = 10

// errPreviewDone stops the scan once enough rows are collected.
var errPreviewDone = errors.New("preview complete")

// Preview parses just enough of the input to return the header row and the
// first maxRows data rows. It reads no further than needed, which keeps it
// cheap on very large files. No progress events are emitted.
func Preview(ctx context.Context, r io.Reader, opts ParseOptions, maxRows int) (*ParseResult, error) {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}

	san := NewSanitizer(opts.EncodingHint)
	src := san.WrapReader(r)
	cr := NewChunkReader(src, opts.ChunkSize)
	rb := newRowBuilder(opts.StrictFieldCount, san)
	var sc recordScanner

	emit := func(record []string) error {
		if err := rb.add(record); err != nil {
			return err
		}
		if len(rb.rows) >= maxRows {
			return errPreviewDone
		}
		return nil
	}

	for cr.Next() {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}
		if err := sc.write(cr.Records(), emit); err != nil {
			if errors.Is(err, errPreviewDone) {
				return rb.result(san), nil
			}
			return nil, err
		}
	}
	if err := cr.Err(); err != nil {
		return rb.result(san), &ParseError{Kind: KindIO, Detail: "reading input", Err: err}
	}
	if err := sc.finish(emit); err != nil {
		if errors.Is(err, errPreviewDone) {
			return rb.result(san), nil
		}
		return nil, err
	}
	return rb.result(san), nil
}
