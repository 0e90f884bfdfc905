package grammar

// CaptureKind classifies a query capture.
type CaptureKind uint8

const (
	CaptureUnknown CaptureKind = iota
	CaptureScope
	CaptureDefinitionScoped
	CaptureDefinitionExported
	CaptureReference
	CaptureComment
)

var captureNames = map[string]CaptureKind{
	"scope":               CaptureScope,
	"definition.scoped":   CaptureDefinitionScoped,
	"definition.exported": CaptureDefinitionExported,
	"reference":           CaptureReference,
	"comment":             CaptureComment,
}

// ParseCaptureKind maps a capture name to its kind.
func ParseCaptureKind(name string) (CaptureKind, bool) {
	k, ok := captureNames[name]
	return k, ok
}

func (k CaptureKind) String() string {
	for name, kind := range captureNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// IsDefinition reports whether k is one of the two definition kinds.
func (k CaptureKind) IsDefinition() bool {
	return k == CaptureDefinitionScoped || k == CaptureDefinitionExported
}
