package classify

import (
	"strings"

	"dlldepends/internal/xmlscan"
)

// Dialect describes the project-file flavour found on the first element that
// declares one. SDK-style projects carry an Sdk attribute; legacy MSBuild
// projects declare the msbuild xmlns.
type Dialect struct {
	Namespace string `json:"namespace,omitempty"`
	SDK       string `json:"sdk,omitempty"`
}

// Style returns "sdk", "legacy" or "unknown".
func (d Dialect) Style() string {
	switch {
	case d.SDK != "":
		return "sdk"
	case d.Namespace != "":
		return "legacy"
	default:
		return "unknown"
	}
}

func (d Dialect) String() string {
	switch d.Style() {
	case "sdk":
		return "sdk (" + d.SDK + ")"
	case "legacy":
		return "legacy (" + d.Namespace + ")"
	default:
		return "unknown"
	}
}

// DetectDialect scans start elements for the first xmlns or sdk attribute
// and stops there. It uses its own scanner, so later passes are unaffected.
func DetectDialect(doc []byte) (Dialect, error) {
	var d Dialect
	s := xmlscan.NewScanner(doc)
	for ev := range s.All() {
		if ev.Kind != xmlscan.ElementStart {
			continue
		}
		for _, a := range ev.Attrs {
			switch strings.ToLower(a.Key) {
			case "xmlns":
				d.Namespace = a.Value
				return d, nil
			case "sdk":
				d.SDK = a.Value
				return d, nil
			}
		}
	}
	return d, s.Err()
}
