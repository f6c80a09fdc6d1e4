package entities

import (
	"github.com/google/uuid"

	"netsync/domain/core/valueobjects"
	pkgerrors "netsync/pkg/errors"
)

// Edge connects two nodes of the same network. SourceHandle and TargetHandle
// name the anchor points the connector attaches to; their embedded role tags
// must match the endpoint (see RepairHandles).
type Edge struct {
	ID           string              `json:"id"`
	NetworkID    string              `json:"network_id"`
	SourceNodeID string              `json:"source_id"`
	TargetNodeID string              `json:"target_id"`
	SourceHandle valueobjects.Handle `json:"source_handle"`
	TargetHandle valueobjects.Handle `json:"target_handle"`
	Label        string              `json:"label"`
	Color        string              `json:"color,omitempty"`
	Notes        string              `json:"notes,omitempty"`
}

// NewEdge creates an edge between two nodes of networkID
func NewEdge(networkID, sourceNodeID, targetNodeID string, sourceHandle, targetHandle valueobjects.Handle, label string) (*Edge, error) {
	if networkID == "" {
		return nil, pkgerrors.NewValidationError("networkID cannot be empty")
	}
	if sourceNodeID == "" || targetNodeID == "" {
		return nil, pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}
	if !sourceHandle.IsValidSource() {
		return nil, pkgerrors.NewInvariantError("source handle must carry the source role tag")
	}
	if !targetHandle.IsValidTarget() {
		return nil, pkgerrors.NewInvariantError("target handle must carry the target role tag")
	}

	return &Edge{
		ID:           uuid.NewString(),
		NetworkID:    networkID,
		SourceNodeID: sourceNodeID,
		TargetNodeID: targetNodeID,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
		Label:        label,
	}, nil
}

// HandlesValid reports whether both handles satisfy their role-tag invariant
func (e *Edge) HandlesValid() bool {
	return e.SourceHandle.IsValidSource() && e.TargetHandle.IsValidTarget()
}

// RepairHandles corrects role-tag violations in place, defaulting each bad
// handle to its canonical side. Records written before the role-tag rule
// existed can violate it on either endpoint or both; each endpoint is
// repaired independently. Returns whether a repair happened and whether the
// edge is usable afterwards: an edge still invalid after repair is not safe
// to render and must be dropped.
func (e *Edge) RepairHandles() (repaired bool, usable bool) {
	if e.HandlesValid() {
		return false, true
	}

	if !e.SourceHandle.IsValidSource() {
		e.SourceHandle = valueobjects.CanonicalSourceHandle
	}
	if !e.TargetHandle.IsValidTarget() {
		e.TargetHandle = valueobjects.CanonicalTargetHandle
	}
	return true, e.HandlesValid()
}
