package ingest

// orchestrator.go composes the classifier, chunk reader, record scanner and
// sanitizer into the three public entry points. The orchestrator is the
// only layer that invokes the progress callback and the only boundary that
// converts internal failures into caller-visible errors.

import (
	"context"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
)

// ParseNonStreaming reads the entire input into memory and parses it in one
// pass. Intended for inputs below the streaming threshold.
func ParseNonStreaming(ctx context.Context, r io.Reader, totalBytes int64, opts ParseOptions) (*ParseResult, error) {
	san := NewSanitizer(opts.EncodingHint)
	counter := &countingReader{r: r}
	src := san.WrapReader(counter)

	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, &ParseError{Kind: KindIO, Detail: "reading input", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	rb := newRowBuilder(opts.StrictFieldCount, san)
	if err := parseRecords(data, rb.add); err != nil {
		return nil, err
	}

	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			BytesRead:  counter.n,
			TotalBytes: totalBytes,
			RowsParsed: len(rb.rows),
		})
	}
	return rb.result(san), nil
}

// ParseStreaming drives the chunk reader in a loop, yielding a progress
// event after every physical read and checking for cancellation between
// chunks. A record is always parsed to completion atomically once its bytes
// are available; only chunk boundaries are interruption points.
func ParseStreaming(ctx context.Context, r io.Reader, totalBytes int64, opts ParseOptions) (*ParseResult, error) {
	san := NewSanitizer(opts.EncodingHint)
	counter := &countingReader{r: r}
	src := san.WrapReader(counter)

	cr := NewChunkReader(src, opts.ChunkSize)
	rb := newRowBuilder(opts.StrictFieldCount, san)
	var sc recordScanner

	progress := func() {
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressEvent{
				BytesRead:  counter.n,
				TotalBytes: totalBytes,
				RowsParsed: len(rb.rows),
			})
		}
	}

	for cr.Next() {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}
		if err := sc.write(cr.Records(), rb.add); err != nil {
			return nil, err
		}
		progress()
	}
	if err := cr.Err(); err != nil {
		// Rows parsed before the failure are surfaced together with the
		// error rather than silently dropped.
		return rb.result(san), &ParseError{Kind: KindIO, Detail: "reading input", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	if err := sc.finish(rb.add); err != nil {
		return nil, err
	}

	progress()
	return rb.result(san), nil
}

// ParseSmart picks the parsing strategy from the declared input size: one
// buffer below the streaming threshold, chunked streaming above it, and a
// dedicated worker goroutine for very large inputs so the caller's loop
// stays responsive. The choice never changes the returned data.
func ParseSmart(ctx context.Context, r io.Reader, totalBytes int64, opts ParseOptions) (*ParseResult, error) {
	if !ShouldUseStreaming(totalBytes) {
		return ParseNonStreaming(ctx, r, totalBytes, opts)
	}
	if ShouldUseWorker(totalBytes) {
		return parseDelegated(ctx, r, totalBytes, opts)
	}
	return ParseStreaming(ctx, r, totalBytes, opts)
}

// ParseFile opens path, sizes it, and runs ParseSmart.
func ParseFile(ctx context.Context, path string, opts ParseOptions) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Kind: KindIO, Detail: "opening file", Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &ParseError{Kind: KindIO, Detail: "sizing file", Err: err}
	}
	return ParseSmart(ctx, f, info.Size(), opts)
}

// parseDelegated runs the entire streaming loop in its own goroutine. The
// worker owns the reader and all parser state; progress events and the
// final outcome cross back over channels, and the caller re-emits events to
// OnProgress in order. Nothing mutable is shared between the two sides.
func parseDelegated(ctx context.Context, r io.Reader, totalBytes int64, opts ParseOptions) (*ParseResult, error) {
	type outcome struct {
		result *ParseResult
		err    error
	}

	events := make(chan ProgressEvent, 16)
	done := make(chan outcome, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		workerOpts := opts
		workerOpts.OnProgress = func(ev ProgressEvent) {
			select {
			case events <- ev:
			case <-gctx.Done():
			}
		}
		res, err := ParseStreaming(gctx, r, totalBytes, workerOpts)
		done <- outcome{result: res, err: err}
		return nil
	})

	for ev := range events {
		if opts.OnProgress != nil {
			opts.OnProgress(ev)
		}
	}
	_ = g.Wait()

	oc := <-done
	return oc.result, oc.err
}

func cancelled(cause error) *ParseError {
	return &ParseError{Kind: KindCancelled, Err: cause}
}
