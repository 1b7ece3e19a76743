// Package classify determines how a project document references a component.
package classify

import (
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"dlldepends/internal/xmlscan"
)

// Kind is the syntactic mechanism a project uses to depend on a component.
type Kind int

const (
	None Kind = iota
	Reference
	PackageReference
	ProjectReference
)

// Priority is the order in which kinds are tested. The first match wins.
var Priority = []Kind{Reference, PackageReference, ProjectReference}

// String returns the element name used for the kind in project documents.
func (k Kind) String() string {
	switch k {
	case Reference:
		return "Reference"
	case PackageReference:
		return "PackageReference"
	case ProjectReference:
		return "ProjectReference"
	default:
		return "None"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for _, k := range append([]Kind{None}, Priority...) {
		if k.String() == s {
			return k, true
		}
	}
	return None, false
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ErrNotText is returned when a document is not valid UTF-8 text.
var ErrNotText = errors.New("document is not valid UTF-8 text")

const includeAttr = "include"

// NormalizeTarget strips a trailing ".dll" (any case) and any directory
// components, so "lib\Grpc.Tools.dll" and "Grpc.Tools" compare equal.
// Names without the suffix are returned unchanged.
func NormalizeTarget(name string) string {
	if !strings.HasSuffix(strings.ToLower(name), ".dll") {
		return name
	}
	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return base[:len(base)-len(".dll")]
}

// Classifier classifies project documents.
type Classifier struct {
	log logrus.FieldLogger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used for the diagnostic trace.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Classifier) {
		c.log = l
	}
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = discardLogger()
	}
	return c
}

// Classify returns the highest-priority kind whose element includes target.
// A document that is not UTF-8 text yields None and ErrNotText.
func (c *Classifier) Classify(doc []byte, target string) (Kind, error) {
	return c.ClassifyNormalized(doc, NormalizeTarget(target))
}

// ClassifyNormalized is Classify for a target that has already been through
// NormalizeTarget. It is compared as given.
func (c *Classifier) ClassifyNormalized(doc []byte, target string) (Kind, error) {
	if !utf8.Valid(doc) {
		return None, ErrNotText
	}

	dialect, err := DetectDialect(doc)
	if err != nil {
		c.log.WithError(err).Warn("dialect detection stopped early")
	}
	c.log.Debugf("dialect: %s", dialect)

	for _, kind := range Priority {
		found, err := c.HasReference(doc, kind, target)
		if err != nil {
			c.log.WithError(err).Warnf("error reading XML while scanning %s", kind)
		}
		if found {
			return kind, nil
		}
	}
	return None, nil
}

// HasReference scans the whole document for a kind element whose include
// attribute equals target. target is compared as given. A non-nil error means
// the document was malformed and the scan stopped at that point.
func (c *Classifier) HasReference(doc []byte, kind Kind, target string) (bool, error) {
	name := kind.String()
	c.log.Debugf("## scanning: %s (%s)", target, kind)

	s := xmlscan.NewScanner(doc)
	for ev := range s.All() {
		if ev.Name != name {
			continue
		}
		for _, a := range ev.Attrs {
			if !strings.EqualFold(a.Key, includeAttr) {
				continue
			}
			c.log.Debugf("-----> %s vs %s", a.Value, target)
			if a.Value == target {
				return true, nil
			}
			if kind == ProjectReference {
				c.log.Debugf("--> ProjectRef: %s", a.Value)
			}
		}
	}
	return false, s.Err()
}

var defaultClassifier = New()

// Classify classifies doc without diagnostics.
func Classify(doc []byte, target string) (Kind, error) {
	return defaultClassifier.Classify(doc, target)
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
