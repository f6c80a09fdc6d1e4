package valueobjects

import "strings"

// Handle identifies one of the anchor points on a node where an edge endpoint
// attaches. A node exposes four sides, each in a source and a target role, so
// handle ids look like "right-source" or "left-target". The role tag embedded
// in the id must match the endpoint the handle is used for.
type Handle string

const (
	// CanonicalSourceHandle is the fallback for a repaired source endpoint
	CanonicalSourceHandle Handle = "right-source"
	// CanonicalTargetHandle is the fallback for a repaired target endpoint
	CanonicalTargetHandle Handle = "left-target"

	roleSource = "source"
	roleTarget = "target"
)

// String returns the raw handle id
func (h Handle) String() string {
	return string(h)
}

// IsValidSource reports whether the handle carries the source role tag
func (h Handle) IsValidSource() bool {
	return strings.Contains(string(h), roleSource)
}

// IsValidTarget reports whether the handle carries the target role tag
func (h Handle) IsValidTarget() bool {
	return strings.Contains(string(h), roleTarget)
}
