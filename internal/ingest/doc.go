// Package ingest parses survey CSV files into header-keyed rows.
//
// The package contains all parsing logic independent of any UI or transport
// layer. It can be used by web handlers, CLI tools, or tests without
// modification.
//
// # Parse Strategies
//
// Files are parsed with one of two strategies, selected by size:
//
//   - Non-streaming: the whole input is read into memory and parsed in one
//     pass. Used for files under 1 MiB.
//   - Streaming: the input is read in record-aligned chunks with bounded
//     memory. Used for files of 1 MiB and above. Files over 5 MiB
//     additionally run the parse on a delegated goroutine that reports
//     progress through a channel.
//
// [ParseSmart] applies this selection automatically; [ParseNonStreaming]
// and [ParseStreaming] force a strategy. Both strategies produce identical
// results for the same input.
//
// # Streaming Flow
//
//  1. Client calls [ParseStreaming] (or [ParseSmart]) with an io.Reader
//     and the total input size
//  2. The reader is wrapped with BOM skipping and encoding repair
//  3. [ChunkReader] yields chunks cut only at record boundaries, holding
//     back partial trailing records for the next chunk
//  4. Progress is reported through [ParseOptions.OnProgress] after each
//     chunk
//
// # Asynchronous Parses
//
// [Service] runs parses in the background with bounded concurrency:
//
//	svc := ingest.NewService(5, 30*time.Second)
//	id, err := svc.StartParse(ctx, "wages.csv", f, size, opts)
//	ch, _ := svc.SubscribeProgress(id)
//	for ev := range ch {
//	    // render progress
//	}
//	res, err := svc.Result(id)
//
// # Error Handling
//
// Parse failures carry an [ErrorKind] describing the category. Technical
// errors are mapped to user-friendly messages using [MapError]. Each error
// category has a unique code for support reference:
//
//   - CSV001-CSV002: Malformed quoting, inconsistent row shapes
//   - FILE001: Unreadable input
//   - UPL001: Cancelled parses
//   - SYS001: Everything else
//
// Cancellation discards all partial output; a read failure mid-stream
// returns the rows parsed so far together with the error.
package ingest
