// Package tdl decodes TDL task-list exports into an element tree and exposes
// the task nodes it contains.
package tdl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/compozy/tdlimport/pkg/logger"
)

// Encoding names a source text encoding the decoder can try.
type Encoding string

const (
	UTF8    Encoding = "UTF-8"
	UTF16LE Encoding = "UTF-16LE"
	UTF16BE Encoding = "UTF-16BE"
)

// Candidates is the fixed order in which source encodings are attempted.
var Candidates = []Encoding{UTF8, UTF16LE, UTF16BE}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Tree is a successfully decoded TDL document.
type Tree struct {
	doc      *etree.Document
	encoding Encoding
}

// Encoding reports which candidate produced the tree.
func (t *Tree) Encoding() Encoding {
	return t.encoding
}

// Root returns the document element.
func (t *Tree) Root() *etree.Element {
	return t.doc.Root()
}

// Decode parses raw bytes of unknown encoding. Each candidate encoding is
// tried in order on a fresh document, and the first one that yields a
// well-formed tree with a root element wins.
func Decode(ctx context.Context, data []byte) (*Tree, error) {
	log := logger.FromContext(ctx)
	if len(data) == 0 {
		return nil, &DecodeError{Attempts: []AttemptError{{Err: ErrEmptyInput}}}
	}
	attempts := make([]AttemptError, 0, len(Candidates))
	for _, enc := range Candidates {
		doc, err := parseAs(data, enc)
		if err != nil {
			log.Debug("tdl: decode attempt failed", "encoding", string(enc), "error", err)
			attempts = append(attempts, AttemptError{Encoding: enc, Err: err})
			continue
		}
		log.Debug("tdl: decoded document", "encoding", string(enc))
		return &Tree{doc: doc, encoding: enc}, nil
	}
	return nil, &DecodeError{Attempts: attempts}
}

func parseAs(data []byte, enc Encoding) (*etree.Document, error) {
	text, err := transcode(data, enc)
	if err != nil {
		return nil, fmt.Errorf("transcode: %w", err)
	}
	text = bytes.TrimPrefix(text, utf8BOM)
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader(enc)
	if err := doc.ReadFromBytes(text); err != nil {
		return nil, err
	}
	switch roots := doc.ChildElements(); {
	case len(roots) == 0:
		return nil, ErrNoRoot
	case len(roots) > 1:
		return nil, fmt.Errorf("%w: <%s> follows <%s>", ErrMultipleRoots, roots[1].Tag, roots[0].Tag)
	}
	return doc, nil
}

// transcode converts data from enc into UTF-8.
func transcode(data []byte, enc Encoding) ([]byte, error) {
	var endian unicode.Endianness
	switch enc {
	case UTF8:
		return data, nil
	case UTF16LE:
		endian = unicode.LittleEndian
	case UTF16BE:
		endian = unicode.BigEndian
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
	out, _, err := transform.Bytes(unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder(), data)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// charsetReader honors a declared encoding only when the bytes have not
// already been transcoded. Unicode labels always pass through since the
// parser input is UTF-8 by then.
func charsetReader(enc Encoding) func(string, io.Reader) (io.Reader, error) {
	return func(label string, input io.Reader) (io.Reader, error) {
		l := strings.ToLower(strings.TrimSpace(label))
		if enc != UTF8 || strings.HasPrefix(l, "utf") || strings.HasPrefix(l, "ucs") || l == "unicode" {
			return input, nil
		}
		return charset.NewReaderLabel(label, input)
	}
}
