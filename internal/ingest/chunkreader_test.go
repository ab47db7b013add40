package ingest

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

// drain collects every chunk the reader produces.
func drain(t *testing.T, cr *ChunkReader) [][]byte {
	t.Helper()
	var chunks [][]byte
	for cr.Next() {
		if rec := cr.Records(); len(rec) > 0 {
			chunks = append(chunks, append([]byte(nil), rec...))
		}
	}
	if err := cr.Err(); err != nil {
		t.Fatalf("ChunkReader error = %v", err)
	}
	return chunks
}

func TestChunkReader_ChunksEndOnRecordBoundaries(t *testing.T) {
	input := "a,b,c\n1,2,3\n4,5,6\n7,8,9\n"
	cr := NewChunkReader(strings.NewReader(input), 8)

	chunks := drain(t, cr)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for chunk size 8, got %d", len(chunks))
	}

	var rebuilt []byte
	for i, ch := range chunks[:len(chunks)-1] {
		if ch[len(ch)-1] != '\n' {
			t.Errorf("chunk %d does not end on a record boundary: %q", i, ch)
		}
		rebuilt = append(rebuilt, ch...)
	}
	rebuilt = append(rebuilt, chunks[len(chunks)-1]...)
	if string(rebuilt) != input {
		t.Errorf("concatenated chunks = %q, want %q", rebuilt, input)
	}
}

func TestChunkReader_HoldsBackPartialRecord(t *testing.T) {
	// Chunk size lands mid-record; the partial tail must move to the
	// next chunk rather than being emitted early.
	input := "aaaa,bbbb\ncccc,dddd\n"
	cr := NewChunkReader(strings.NewReader(input), 12)

	if !cr.Next() {
		t.Fatal("first Next() = false")
	}
	first := string(cr.Records())
	if first != "aaaa,bbbb\n" {
		t.Errorf("first chunk = %q, want %q", first, "aaaa,bbbb\n")
	}

	if !cr.Next() {
		t.Fatal("second Next() = false")
	}
	second := string(cr.Records())
	if second != "cccc,dddd\n" {
		t.Errorf("second chunk = %q, want %q", second, "cccc,dddd\n")
	}
}

func TestChunkReader_QuotedFieldSpansChunks(t *testing.T) {
	// A quoted field longer than several chunks: newlines inside it must
	// never be treated as cut points.
	long := strings.Repeat("line\n", 50)
	input := "head\n\"" + long + "\",tail\nlast,row\n"

	for _, size := range []int{7, 16, 64} {
		cr := NewChunkReader(strings.NewReader(input), size)
		chunks := drain(t, cr)

		var rebuilt []byte
		for _, ch := range chunks {
			rebuilt = append(rebuilt, ch...)
		}
		if string(rebuilt) != input {
			t.Fatalf("chunk size %d: reassembled input differs", size)
		}

		// Parse each chunk sequence and confirm the quoted field arrived
		// intact.
		var sc recordScanner
		var records [][]string
		emit := func(rec []string) error {
			records = append(records, rec)
			return nil
		}
		for _, ch := range chunks {
			if err := sc.write(ch, emit); err != nil {
				t.Fatalf("chunk size %d: write error = %v", size, err)
			}
		}
		if err := sc.finish(emit); err != nil {
			t.Fatalf("chunk size %d: finish error = %v", size, err)
		}
		if len(records) != 3 {
			t.Fatalf("chunk size %d: records = %d, want 3", size, len(records))
		}
		if records[1][0] != long {
			t.Errorf("chunk size %d: quoted field damaged", size)
		}
	}
}

func TestChunkReader_OutputInvariantUnderChunkSize(t *testing.T) {
	// The parsed output must be byte-for-byte identical for every chunk
	// size, including sizes that slice records, quotes and CRLF pairs at
	// every possible offset.
	input := "name,\"quote,comma\",note\r\n" +
		"\"multi\nline\",b,\"he said \"\"x\"\"\"\r\n" +
		"plain,row,three\n" +
		"last,one,\"no trailing newline\""

	parse := func(chunkSize int) [][]string {
		cr := NewChunkReader(strings.NewReader(input), chunkSize)
		var sc recordScanner
		var records [][]string
		emit := func(rec []string) error {
			records = append(records, rec)
			return nil
		}
		for cr.Next() {
			if err := sc.write(cr.Records(), emit); err != nil {
				t.Fatalf("chunk size %d: write error = %v", chunkSize, err)
			}
		}
		if err := cr.Err(); err != nil {
			t.Fatalf("chunk size %d: read error = %v", chunkSize, err)
		}
		if err := sc.finish(emit); err != nil {
			t.Fatalf("chunk size %d: finish error = %v", chunkSize, err)
		}
		return records
	}

	want := parse(len(input) + 1)
	for size := 1; size <= len(input); size++ {
		got := parse(size)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("chunk size %d: records = %v, want %v", size, got, want)
		}
	}
}

func TestChunkReader_BytesRead(t *testing.T) {
	input := strings.Repeat("a,b\n", 100)
	cr := NewChunkReader(strings.NewReader(input), 64)

	prev := int64(0)
	for cr.Next() {
		if cr.BytesRead() < prev {
			t.Fatalf("BytesRead went backwards: %d -> %d", prev, cr.BytesRead())
		}
		prev = cr.BytesRead()
	}
	if cr.Err() != nil {
		t.Fatalf("unexpected error: %v", cr.Err())
	}
	if cr.BytesRead() != int64(len(input)) {
		t.Errorf("final BytesRead = %d, want %d", cr.BytesRead(), len(input))
	}
}

func TestChunkReader_ReadError(t *testing.T) {
	wantErr := errors.New("disk gone")
	src := io.MultiReader(
		strings.NewReader("a,b\n1,2\n"),
		&failingReader{err: wantErr},
	)
	cr := NewChunkReader(src, 4)

	for cr.Next() {
	}
	if !errors.Is(cr.Err(), wantErr) {
		t.Errorf("Err() = %v, want %v", cr.Err(), wantErr)
	}
}

func TestChunkReader_EmptyInput(t *testing.T) {
	cr := NewChunkReader(bytes.NewReader(nil), 16)
	if cr.Next() {
		t.Errorf("Next() = true on empty input, Records = %q", cr.Records())
	}
	if cr.Err() != nil {
		t.Errorf("Err() = %v, want nil", cr.Err())
	}
}

// failingReader returns its error on every Read.
type failingReader struct{ err error }

func (f *failingReader) Read([]byte) (int, error) { return 0, f.err }
