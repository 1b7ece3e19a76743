// Package xmlscan provides a tolerant, forward-only event reader over XML
// build documents such as .csproj files.
package xmlscan

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// EventKind identifies the type of a scan event.
type EventKind int

const (
	// EndOfDocument is returned once input is exhausted or a malformed token is hit.
	EndOfDocument EventKind = iota
	// ElementStart is an opening tag such as <ItemGroup>.
	ElementStart
	// ElementEmpty is a self-closing tag such as <Reference Include="x" />.
	ElementEmpty
)

func (k EventKind) String() string {
	switch k {
	case ElementStart:
		return "ElementStart"
	case ElementEmpty:
		return "ElementEmpty"
	default:
		return "EndOfDocument"
	}
}

// Attr is a decoded attribute key/value pair.
type Attr struct {
	Key   string
	Value string
}

// Event is a single item of the scan sequence.
type Event struct {
	Kind  EventKind
	Name  string
	Attrs []Attr
}

// Attr returns the value of the first attribute whose key equals key,
// compared case-insensitively.
func (e Event) Attr(key string) (string, bool) {
	for _, a := range e.Attrs {
		if strings.EqualFold(a.Key, key) {
			return a.Value, true
		}
	}
	return "", false
}

// Scanner reads element events from an in-memory document.
type Scanner struct {
	src  []byte
	dec  *xml.Decoder
	err  error
	done bool
}

// NewScanner creates a scanner over doc. The document is never modified.
func NewScanner(doc []byte) *Scanner {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = false
	// Callers hand us text that is already UTF-8; the declared encoding label
	// (utf-16, windows-1252, ...) is not trusted.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return &Scanner{src: doc, dec: dec}
}

// Next returns the next element event. After EndOfDocument has been returned
// every further call returns EndOfDocument again.
func (s *Scanner) Next() Event {
	if s.done {
		return Event{Kind: EndOfDocument}
	}

	for {
		tok, err := s.dec.RawToken()
		if err != nil {
			s.done = true
			if !errors.Is(err, io.EOF) {
				s.err = fmt.Errorf("reading XML at offset %d: %w", s.dec.InputOffset(), err)
			}
			return Event{Kind: EndOfDocument}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			// End tags, character data, comments and directives are not surfaced.
			continue
		}

		kind := ElementStart
		if s.selfClosed() {
			kind = ElementEmpty
		}
		return Event{
			Kind:  kind,
			Name:  qualifiedName(start.Name),
			Attrs: convertAttrs(start.Attr),
		}
	}
}

// Err returns the error that ended the scan early, if any.
func (s *Scanner) Err() error {
	return s.err
}

// All yields element events until the end of the document.
func (s *Scanner) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for {
			ev := s.Next()
			if ev.Kind == EndOfDocument {
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// selfClosed reports whether the start tag just consumed ended with "/>".
func (s *Scanner) selfClosed() bool {
	off := s.dec.InputOffset()
	if off < 2 || off > int64(len(s.src)) {
		return false
	}
	return s.src[off-2] == '/' && s.src[off-1] == '>'
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func convertAttrs(attrs []xml.Attr) []Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]Attr, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, Attr{Key: qualifiedName(a.Name), Value: a.Value})
	}
	return out
}
