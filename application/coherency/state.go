package coherency

// State tags the network-selection lifecycle. Making the lifecycle an
// explicit machine keeps illegal interleavings unrepresentable instead of
// guarded by scattered booleans.
type State int

const (
	// StateIdle means no network is selected
	StateIdle State = iota
	// StateLoading means a fetch for the selected network is in flight
	StateLoading
	// StateReady means the in-memory working set equals the best-known state
	StateReady
	// StateSwitching covers the tear-down of the old selection before the
	// new one's data is adopted
	StateSwitching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	case StateSwitching:
		return "SWITCHING"
	default:
		return "UNKNOWN"
	}
}
