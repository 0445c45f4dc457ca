package buildid

import (
	"regexp"
	"strings"

	"github.com/specialistvlad/buildtree/internal/errors"
)

// Separator joins path segments.
const Separator = ":"

// segmentRegex matches a single path segment, e.g. `app` or `core-utils`.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Root is the path of a root project, or of the root build.
var Root = Path{canonical: Separator}

// Path is a colon-separated hierarchical path. The zero value is not a valid
// path; use Root or ParsePath.
type Path struct {
	canonical string
}

// isValidSegmentName checks for undesirable but technically valid names.
func isValidSegmentName(name string) bool {
	if name == "." || name == ".." || name == "-" {
		return false
	}
	return true
}

// ValidateSegment reports whether name can be used as a single path segment.
func ValidateSegment(name string) error {
	if name == "" {
		return errors.NewValidationError("path segment", name, "must not be empty")
	}
	if !segmentRegex.MatchString(name) || !isValidSegmentName(name) {
		return errors.NewValidationError("path segment", name, "contains unsupported characters")
	}
	return nil
}

// ParsePath parses an absolute path such as `:app:core`.
func ParsePath(raw string) (Path, error) {
	if raw == Separator {
		return Root, nil
	}
	if !strings.HasPrefix(raw, Separator) {
		return Path{}, errors.NewValidationError("path", raw, "must start with ':'")
	}
	for _, segment := range strings.Split(raw[1:], Separator) {
		if segment == "" {
			return Path{}, errors.NewValidationError("path", raw, "contains empty segment")
		}
		if err := ValidateSegment(segment); err != nil {
			return Path{}, errors.NewValidationError("path", raw, "invalid segment "+segment)
		}
	}
	return Path{canonical: raw}, nil
}

// MustParsePath is like ParsePath but panics on error. Intended for tests and
// package-level constants.
func MustParsePath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the canonical form.
func (p Path) String() string {
	return p.canonical
}

// IsZero reports whether p is the zero Path.
func (p Path) IsZero() bool {
	return p.canonical == ""
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return p.canonical == Separator
}

// Segments returns the path's segments; empty for the root.
func (p Path) Segments() []string {
	if p.IsZero() || p.IsRoot() {
		return nil
	}
	return strings.Split(p.canonical[1:], Separator)
}

// Depth is the number of segments; 0 for the root.
func (p Path) Depth() int {
	return len(p.Segments())
}

// Name returns the last segment, or "" for the root.
func (p Path) Name() string {
	if p.IsZero() || p.IsRoot() {
		return ""
	}
	return p.canonical[strings.LastIndex(p.canonical, Separator)+1:]
}

// Parent returns the enclosing path. The root has no parent.
func (p Path) Parent() (Path, bool) {
	if p.IsZero() || p.IsRoot() {
		return Path{}, false
	}
	idx := strings.LastIndex(p.canonical, Separator)
	if idx == 0 {
		return Root, true
	}
	return Path{canonical: p.canonical[:idx]}, true
}

// Child returns the path of the named child. name must be a valid segment.
func (p Path) Child(name string) (Path, error) {
	if err := ValidateSegment(name); err != nil {
		return Path{}, err
	}
	if p.IsRoot() {
		return Path{canonical: Separator + name}, nil
	}
	return Path{canonical: p.canonical + Separator + name}, nil
}

// Append joins other onto p, e.g. `:buildSrc` + `:app` = `:buildSrc:app`.
func (p Path) Append(other Path) Path {
	switch {
	case other.IsZero() || other.IsRoot():
		return p
	case p.IsZero() || p.IsRoot():
		return other
	default:
		return Path{canonical: p.canonical + other.canonical}
	}
}
