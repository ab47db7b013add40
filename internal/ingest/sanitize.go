package ingest

// sanitize.go detects and repairs character-level corruption in uploaded
// data: stray byte order marks, mojibake from double-encoded text, legacy
// single-byte encodings, disallowed control characters, and Excel export
// artifacts.
//
// Sanitization never fails a parse. Everything found is collected into an
// EncodingIssueReport; when no safe repair is known the text passes through
// unmodified. Cleaning is idempotent: a second pass over sanitized text is
// a no-op and reports nothing.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const (
	utf8BOM = "\xef\xbb\xbf"

	// detectPeekSize is how much of the stream the charset detector sees.
	detectPeekSize = 2048
)

// mojibakeRepairs maps garbled sequences produced by decoding UTF-8 bytes
// as Windows-1252 back to the characters that were originally meant. No
// replacement contains any key, which keeps repair idempotent.
var mojibakeRepairs = []struct{ bad, good string }{
	{"â€™", "'"},       // â€™ right single quote
	{"â€˜", "'"},       // â€˜ left single quote
	{"â€œ", "\""},      // â€œ left double quote
	{"â€", "\""},      // right double quote
	{"â€“", "–"},  // â€“ en dash
	{"â€”", "—"},  // â€” em dash
	{"â€¦", "…"},  // â€¦ ellipsis
	{"â€¢", "•"},  // â€¢ bullet
	{"Ã©", "é"},        // Ã© -> é
	{"Ã¨", "è"},        // Ã¨ -> è
	{"Ã¡", "á"},        // Ã¡ -> á
	{"Ã³", "ó"},        // Ã³ -> ó
	{"Ãº", "ú"},        // Ãº -> ú
	{"Ã±", "ñ"},        // Ã± -> ñ
	{"Ã¼", "ü"},        // Ã¼ -> ü
	{"Ã¶", "ö"},        // Ã¶ -> ö
	{"Ã¤", "ä"},        // Ã¤ -> ä
	{"ÃŸ", "ß"},        // ÃŸ -> ß
	{"Ã§", "ç"},        // Ã§ -> ç
	{"Â°", "°"},        // Â° -> °
	{"Â£", "£"},        // Â£ -> £
	{"Â©", "©"},        // Â© -> ©
	{"Â®", "®"},        // Â® -> ®
	{"Â ", " "},             // garbled non-breaking space
}

const reexportAdvice = "re-export the source file as UTF-8; it appears to have gone through a Windows-1252 round trip"

// Sanitizer detects and repairs character-level corruption in field text
// without altering already-well-formed text. One Sanitizer serves one parse
// invocation and accumulates the issue report as it cleans.
type Sanitizer struct {
	hint string

	counts   map[string]int
	order    []string
	recs     map[string]struct{}
	recOrder []string
}

// NewSanitizer returns a sanitizer seeded with an optional declared source
// encoding. An empty hint enables content-based detection.
func NewSanitizer(hint string) *Sanitizer {
	return &Sanitizer{
		hint:   strings.TrimSpace(hint),
		counts: make(map[string]int),
		recs:   make(map[string]struct{}),
	}
}

func (s *Sanitizer) note(issue string) {
	if s.counts[issue] == 0 {
		s.order = append(s.order, issue)
	}
	s.counts[issue]++
}

func (s *Sanitizer) recommend(text string) {
	if _, ok := s.recs[text]; ok {
		return
	}
	s.recs[text] = struct{}{}
	s.recOrder = append(s.recOrder, text)
}

// WrapReader prepares the raw input stream: it strips a leading UTF-8 byte
// order mark and, when a legacy encoding is declared or detected, decodes
// the stream to UTF-8. Issues found here land in the report like
// field-level ones.
func (s *Sanitizer) WrapReader(r io.Reader) io.Reader {
	br := bufio.NewReaderSize(r, detectPeekSize)

	if lead, _ := br.Peek(len(utf8BOM)); string(lead) == utf8BOM {
		br.Discard(len(utf8BOM))
		s.note("leading UTF-8 byte order mark removed")
	}

	if s.hint != "" {
		return s.wrapHinted(br)
	}
	return s.wrapDetected(br)
}

func (s *Sanitizer) wrapHinted(br *bufio.Reader) io.Reader {
	enc, name := charset.Lookup(s.hint)
	if enc == nil {
		s.note(fmt.Sprintf("unknown encoding hint %q, input treated as UTF-8", s.hint))
		return br
	}
	if name == "utf-8" {
		return br
	}
	s.note(fmt.Sprintf("input decoded from declared encoding %s", name))
	s.recommend("re-export the source file as UTF-8 to avoid conversion on upload")
	return transform.NewReader(br, enc.NewDecoder())
}

func (s *Sanitizer) wrapDetected(br *bufio.Reader) io.Reader {
	peek, _ := br.Peek(detectPeekSize)
	if t := incompleteTrailingBytes(peek); t > 0 {
		peek = peek[:len(peek)-t]
	}
	if len(peek) == 0 || utf8.Valid(peek) {
		return br
	}

	best, err := chardet.NewTextDetector().DetectBest(peek)
	if err != nil || best == nil {
		s.note("input is not valid UTF-8 and its encoding could not be detected")
		s.recommend(reexportAdvice)
		return br
	}

	var enc encoding.Encoding
	switch strings.ToLower(best.Charset) {
	case "windows-1252":
		enc = charmap.Windows1252
	case "windows-1251":
		enc = charmap.Windows1251
	case "iso-8859-1":
		enc = charmap.ISO8859_1
	case "iso-8859-2":
		enc = charmap.ISO8859_2
	default:
		if e, name := charset.Lookup(best.Charset); e != nil && name != "utf-8" {
			enc = e
		}
	}
	if enc == nil {
		s.note(fmt.Sprintf("input is not valid UTF-8 (detector suggested %s, which is unsupported)", best.Charset))
		s.recommend(reexportAdvice)
		return br
	}

	s.note(fmt.Sprintf("input appears to be %s, converted to UTF-8", best.Charset))
	s.recommend(reexportAdvice)
	return transform.NewReader(br, enc.NewDecoder())
}

// Clean repairs one field value. Already-well-formed ASCII takes a fast
// path untouched.
func (s *Sanitizer) Clean(value string) string {
	if isCleanASCII(value) && !strings.HasPrefix(value, `="`) {
		return value
	}
	out := value

	// Excel formula wrapping: ="value". Unwrap until stable so a second
	// sanitizer pass finds nothing left.
	for len(out) >= 3 && strings.HasPrefix(out, `="`) && strings.HasSuffix(out, `"`) {
		out = out[2 : len(out)-1]
		s.note(`Excel formula wrapper ="..." removed`)
	}

	if !utf8.ValidString(out) {
		out = replaceInvalidUTF8(out)
		s.note("invalid UTF-8 bytes replaced with U+FFFD")
		s.recommend(reexportAdvice)
	}

	// Repair to a fixed point: doubly-encoded text can reveal another
	// garbled sequence once the outer layer is undone. Every replacement
	// shrinks the string, so this terminates.
	for {
		changed := false
		for _, rep := range mojibakeRepairs {
			if n := strings.Count(out, rep.bad); n > 0 {
				out = strings.ReplaceAll(out, rep.bad, rep.good)
				s.note(fmt.Sprintf("repaired mojibake sequence %q", rep.bad))
				s.recommend(reexportAdvice)
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	if strings.ContainsRune(out, '\uFEFF') {
		out = strings.ReplaceAll(out, "\uFEFF", "")
		s.note("stray byte order mark removed from field text")
	}
	if strings.ContainsRune(out, ' ') {
		out = strings.ReplaceAll(out, " ", " ")
		s.note("non-breaking space normalized to a regular space")
	}

	return s.stripDisallowed(out)
}

// CleanHeader is Clean plus whitespace trimming for header cells.
func (s *Sanitizer) CleanHeader(h string) string {
	return strings.TrimSpace(s.Clean(h))
}

// Report returns everything noticed so far. Safe to call more than once.
func (s *Sanitizer) Report() EncodingIssueReport {
	rep := EncodingIssueReport{}
	for _, issue := range s.order {
		if n := s.counts[issue]; n > 1 {
			rep.Issues = append(rep.Issues, fmt.Sprintf("%s (%d occurrences)", issue, n))
		} else {
			rep.Issues = append(rep.Issues, issue)
		}
	}
	rep.Recommendations = append(rep.Recommendations, s.recOrder...)
	rep.HasIssues = len(rep.Issues) > 0
	return rep
}

// stripDisallowed removes control characters other than tab, newline and
// carriage return, plus zero-width characters.
func (s *Sanitizer) stripDisallowed(v string) string {
	clean := true
	for _, r := range v {
		if isDisallowed(r) {
			clean = false
			break
		}
	}
	if clean {
		return v
	}

	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if isDisallowed(r) {
			s.note("disallowed control character stripped")
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDisallowed(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	if r < 0x20 || r == 0x7f || (r >= 0x80 && r <= 0x9f) {
		return true
	}
	// Zero-width space, non-joiner, joiner, word joiner.
	return (r >= '​' && r <= '‍') || r == '⁠'
}

// isCleanASCII reports whether the string is plain printable ASCII (plus
// tab/newline/CR) with nothing for Clean to do. Most survey data is, so
// this is the hot path.
func isCleanASCII(v string) bool {
	for i := 0; i < len(v); i++ {
		b := v[i]
		if b >= 0x80 || b == 0x7f || (b < 0x20 && b != '\t' && b != '\n' && b != '\r') {
			return false
		}
	}
	return true
}

// replaceInvalidUTF8 substitutes each invalid byte with the Unicode
// replacement character, leaving valid runes untouched.
func replaceInvalidUTF8(v string) string {
	var buf bytes.Buffer
	buf.Grow(len(v))
	data := []byte(v)
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
			data = data[1:]
		} else {
			buf.Write(data[:size])
			data = data[size:]
		}
	}
	return buf.String()
}

// incompleteTrailingBytes returns how many bytes at the end of data could
// be the start of an incomplete multi-byte UTF-8 sequence.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// runeLen returns the expected length of a UTF-8 sequence starting with b.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0 // continuation byte
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	}
	return 4
}
