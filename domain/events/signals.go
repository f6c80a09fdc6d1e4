package events

import "time"

// SignalName identifies a broadcast signal. The names are the wire format of
// the internal protocol and must stay bit-exact: external collaborators (the
// AI generation pipeline, the CSV importer) emit and listen for them.
type SignalName string

const (
	NetworkCreated            SignalName = "network-created"
	NetworkRenamed            SignalName = "network-renamed"
	ForceNetworkUpdate        SignalName = "force-network-update"
	NetworkDeleted            SignalName = "network-deleted"
	NetworkGenerationComplete SignalName = "network-generation-complete"
	PreGenerationComplete     SignalName = "pre-network-generation-complete"
	NodeAdded                 SignalName = "node-added"
	TodoCompleted             SignalName = "todo-completed"
	TodoDeleted               SignalName = "todo-deleted"
	ForceNetworkDataRefresh   SignalName = "force-network-data-refresh"
)

// Signal is the base interface for all broadcast signals
type Signal interface {
	Name() SignalName
	OccurredAt() time.Time
}

// BaseSignal provides common signal fields
type BaseSignal struct {
	SignalName SignalName `json:"signal"`
	Timestamp  time.Time  `json:"timestamp"`
}

func (s BaseSignal) Name() SignalName      { return s.SignalName }
func (s BaseSignal) OccurredAt() time.Time { return s.Timestamp }

func newBase(name SignalName) BaseSignal {
	return BaseSignal{SignalName: name, Timestamp: time.Now().UTC()}
}

// NetworkCreatedSignal announces that a new network exists. Consumers must
// fetch-or-merge rather than assume the network's data is fully present yet.
type NetworkCreatedSignal struct {
	BaseSignal
	NetworkID string `json:"networkId"`
	IsAI      bool   `json:"isAI"`
	Source    string `json:"source"`
}

// NewNetworkCreated creates a network-created signal
func NewNetworkCreated(networkID string, isAI bool, source string) NetworkCreatedSignal {
	return NetworkCreatedSignal{
		BaseSignal: newBase(NetworkCreated),
		NetworkID:  networkID,
		IsAI:       isAI,
		Source:     source,
	}
}

// NetworkRenamedSignal carries an authoritative rename
type NetworkRenamedSignal struct {
	BaseSignal
	NetworkID string `json:"networkId"`
	NewName   string `json:"newName"`
}

// NewNetworkRenamed creates a network-renamed signal
func NewNetworkRenamed(networkID, newName string) NetworkRenamedSignal {
	return NetworkRenamedSignal{
		BaseSignal: newBase(NetworkRenamed),
		NetworkID:  networkID,
		NewName:    newName,
	}
}

// ForceNetworkUpdateSignal requests a rename merge or, with
// ForceServerRefresh set, a cache discard and refetch for the network.
type ForceNetworkUpdateSignal struct {
	BaseSignal
	NetworkID          string `json:"networkId"`
	NewName            string `json:"newName,omitempty"`
	ForceServerRefresh bool   `json:"forceServerRefresh,omitempty"`
}

// NewForceNetworkUpdate creates a force-network-update signal
func NewForceNetworkUpdate(networkID, newName string, forceServerRefresh bool) ForceNetworkUpdateSignal {
	return ForceNetworkUpdateSignal{
		BaseSignal:         newBase(ForceNetworkUpdate),
		NetworkID:          networkID,
		NewName:            newName,
		ForceServerRefresh: forceServerRefresh,
	}
}

// NetworkDeletedSignal announces that a network is gone. All derived state
// for the id must be purged; if it was current, selection falls back.
type NetworkDeletedSignal struct {
	BaseSignal
	NetworkID string `json:"networkId"`
}

// NewNetworkDeleted creates a network-deleted signal
func NewNetworkDeleted(networkID string) NetworkDeletedSignal {
	return NetworkDeletedSignal{
		BaseSignal: newBase(NetworkDeleted),
		NetworkID:  networkID,
	}
}

// GenerationCompleteSignal announces that bulk AI generation finished,
// successfully or with an error. Triggers the staged refresher.
type GenerationCompleteSignal struct {
	BaseSignal
	NetworkID string `json:"networkId"`
}

// NewGenerationComplete creates a network-generation-complete signal
func NewGenerationComplete(networkID string) GenerationCompleteSignal {
	return GenerationCompleteSignal{
		BaseSignal: newBase(NetworkGenerationComplete),
		NetworkID:  networkID,
	}
}

// PreGenerationCompleteSignal fires just before generation results land, so
// the context knows the next refresh follows a bulk write.
type PreGenerationCompleteSignal struct {
	BaseSignal
	NetworkID string `json:"networkId"`
}

// NewPreGenerationComplete creates a pre-network-generation-complete signal
func NewPreGenerationComplete(networkID string) PreGenerationCompleteSignal {
	return PreGenerationCompleteSignal{
		BaseSignal: newBase(PreGenerationComplete),
		NetworkID:  networkID,
	}
}

// NodeAddedSignal is emitted per created node (the CSV importer emits one
// per row) so node badges and lists update without a full refetch.
type NodeAddedSignal struct {
	BaseSignal
	NetworkID string `json:"networkId"`
	NodeID    string `json:"nodeId"`
}

// NewNodeAdded creates a node-added signal
func NewNodeAdded(networkID, nodeID string) NodeAddedSignal {
	return NodeAddedSignal{
		BaseSignal: newBase(NodeAdded),
		NetworkID:  networkID,
		NodeID:     nodeID,
	}
}

// TodoCompletedSignal keeps denormalized task views in sync on completion
type TodoCompletedSignal struct {
	BaseSignal
	TaskID string `json:"taskId"`
	NodeID string `json:"nodeId"`
}

// NewTodoCompleted creates a todo-completed signal
func NewTodoCompleted(taskID, nodeID string) TodoCompletedSignal {
	return TodoCompletedSignal{
		BaseSignal: newBase(TodoCompleted),
		TaskID:     taskID,
		NodeID:     nodeID,
	}
}

// TodoDeletedSignal keeps denormalized task views in sync on deletion
type TodoDeletedSignal struct {
	BaseSignal
	TaskID string `json:"taskId"`
	NodeID string `json:"nodeId"`
}

// NewTodoDeleted creates a todo-deleted signal
func NewTodoDeleted(taskID, nodeID string) TodoDeletedSignal {
	return TodoDeletedSignal{
		BaseSignal: newBase(TodoDeleted),
		TaskID:     taskID,
		NodeID:     nodeID,
	}
}

// ForceDataRefreshSignal requests a full refetch of the network's working
// set, bypassing the staleness window.
type ForceDataRefreshSignal struct {
	BaseSignal
	NetworkID string `json:"networkId"`
}

// NewForceDataRefresh creates a force-network-data-refresh signal
func NewForceDataRefresh(networkID string) ForceDataRefreshSignal {
	return ForceDataRefreshSignal{
		BaseSignal: newBase(ForceNetworkDataRefresh),
		NetworkID:  networkID,
	}
}
