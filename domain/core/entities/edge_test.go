package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsync/domain/core/valueobjects"
)

func TestNewEdge_Success(t *testing.T) {
	// Act
	edge, err := NewEdge("network1", "node1", "node2", "right-source", "left-target", "knows")

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, edge.ID)
	assert.Equal(t, "network1", edge.NetworkID)
	assert.Equal(t, "knows", edge.Label)
	assert.True(t, edge.HandlesValid())
}

func TestNewEdge_RejectsInvalidSourceHandle(t *testing.T) {
	_, err := NewEdge("network1", "node1", "node2", "left-target", "left-target", "")

	assert.Error(t, err)
}

func TestNewEdge_RejectsEmptyEndpoints(t *testing.T) {
	_, err := NewEdge("network1", "", "node2", "right-source", "left-target", "")

	assert.Error(t, err)
}

func TestEdge_RepairHandles_ValidEdgeUntouched(t *testing.T) {
	edge := &Edge{
		SourceHandle: "top-source",
		TargetHandle: "bottom-target",
	}

	repaired, usable := edge.RepairHandles()

	assert.False(t, repaired)
	assert.True(t, usable)
	assert.Equal(t, valueobjects.Handle("top-source"), edge.SourceHandle)
	assert.Equal(t, valueobjects.Handle("bottom-target"), edge.TargetHandle)
}

func TestEdge_RepairHandles_BadSourceFallsBackToCanonical(t *testing.T) {
	// A source handle carrying the target role tag is the classic legacy
	// record shape.
	edge := &Edge{
		SourceHandle: "left-target",
		TargetHandle: "left-target",
	}

	repaired, usable := edge.RepairHandles()

	assert.True(t, repaired)
	assert.True(t, usable)
	assert.Equal(t, valueobjects.CanonicalSourceHandle, edge.SourceHandle)
	assert.Equal(t, valueobjects.Handle("left-target"), edge.TargetHandle)
}

func TestEdge_RepairHandles_BadTargetFallsBackToCanonical(t *testing.T) {
	edge := &Edge{
		SourceHandle: "right-source",
		TargetHandle: "right-source",
	}

	repaired, usable := edge.RepairHandles()

	assert.True(t, repaired)
	assert.True(t, usable)
	assert.Equal(t, valueobjects.Handle("right-source"), edge.SourceHandle)
	assert.Equal(t, valueobjects.CanonicalTargetHandle, edge.TargetHandle)
}

func TestEdge_RepairHandles_BothInvalidFallsBackToCanonical(t *testing.T) {
	edge := &Edge{
		SourceHandle: "nonsense",
		TargetHandle: "",
	}

	repaired, usable := edge.RepairHandles()

	assert.True(t, repaired)
	assert.True(t, usable)
	assert.Equal(t, valueobjects.CanonicalSourceHandle, edge.SourceHandle)
	assert.Equal(t, valueobjects.CanonicalTargetHandle, edge.TargetHandle)
}

func TestEdge_RepairHandles_SwappedRolesRepairsBothEndpoints(t *testing.T) {
	// Role tags on the wrong endpoints: both handles violate the invariant
	// and both get their canonical default.
	edge := &Edge{
		SourceHandle: "left-target",
		TargetHandle: "right-source",
	}

	repaired, usable := edge.RepairHandles()

	assert.True(t, repaired)
	assert.True(t, usable)
	assert.True(t, edge.HandlesValid())
	assert.Equal(t, valueobjects.CanonicalSourceHandle, edge.SourceHandle)
	assert.Equal(t, valueobjects.CanonicalTargetHandle, edge.TargetHandle)
}
