// Command csvparse parses a survey CSV file and prints a summary of the
// result. It exists both as a working tool and as a reference for wiring
// the ingest package into a host application.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/WiesHerd/survey-ingest/internal/config"
	"github.com/WiesHerd/survey-ingest/internal/ingest"
	"github.com/WiesHerd/survey-ingest/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	var (
		strict   = flag.Bool("strict", cfg.Parser.StrictFieldCount, "reject rows whose field count differs from the header")
		chunk    = flag.Int("chunk", cfg.Parser.ChunkSize, "streaming chunk size in bytes")
		encoding = flag.String("encoding", cfg.Parser.EncodingHint, "charset to assume for non-UTF-8 input (e.g. windows-1251)")
		jsonOut  = flag.Bool("json", false, "emit the parse result as JSON on stdout")
		preview  = flag.Int("preview", 0, "parse only the first N data rows")
		quiet    = flag.Bool("quiet", false, "suppress progress output")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file.csv>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	// Cancel the parse on Ctrl-C
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, path, *strict, *chunk, *encoding, *jsonOut, *preview, *quiet); err != nil {
		ue := ingest.MapError(err)
		fmt.Fprintf(os.Stderr, "[%s] %s\n%s\n", ue.Code, ue.Message, ue.Action)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, path string, strict bool, chunk int, encoding string, jsonOut bool, preview int, quiet bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ingest.ParseError{Kind: ingest.KindIO, Detail: "cannot stat input file", Err: err}
	}
	if info.Size() > cfg.Parser.MaxFileSize {
		return &ingest.ParseError{
			Kind:   ingest.KindIO,
			Detail: fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), cfg.Parser.MaxFileSize),
		}
	}

	opts := ingest.ParseOptions{
		ChunkSize:        chunk,
		EncodingHint:     encoding,
		StrictFieldCount: strict,
	}
	if !quiet && !jsonOut {
		opts.OnProgress = func(ev ingest.ProgressEvent) {
			if ev.TotalBytes > 0 {
				fmt.Fprintf(os.Stderr, "\r%3d%%  %d rows", ev.BytesRead*100/ev.TotalBytes, ev.RowsParsed)
			}
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return &ingest.ParseError{Kind: ingest.KindIO, Detail: "cannot open input file", Err: err}
	}
	defer f.Close()

	var res *ingest.ParseResult
	if preview > 0 {
		res, err = ingest.Preview(ctx, f, opts, preview)
		if err != nil {
			return err
		}
	} else {
		// The full parse runs through the service so the SERVICE_*
		// settings (concurrency, slot wait, parse timeout) apply.
		svc := ingest.NewServiceFromConfig(cfg)
		id, err := svc.StartParse(ctx, filepath.Base(path), f, info.Size(), opts)
		if err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			svc.CancelParse(id)
		}()

		res, err = svc.Result(id)
		if err != nil {
			// A read failure mid-stream still yields the rows parsed so
			// far; report them before failing.
			if res != nil && ingest.KindOf(err) == ingest.KindIO {
				fmt.Fprintf(os.Stderr, "\nparsed %d rows before read failure\n", len(res.Rows))
			}
			return err
		}
	}
	if !quiet && !jsonOut {
		fmt.Fprintln(os.Stderr)
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("file:     %s (%d bytes)\n", path, info.Size())
	fmt.Printf("columns:  %d\n", len(res.Headers))
	fmt.Printf("rows:     %d\n", len(res.Rows))
	if res.EncodingIssues.HasIssues {
		fmt.Println("encoding issues:")
		for _, issue := range res.EncodingIssues.Issues {
			fmt.Printf("  - %s\n", issue)
		}
		for _, rec := range res.EncodingIssues.Recommendations {
			fmt.Printf("  recommendation: %s\n", rec)
		}
	}
	return nil
}
