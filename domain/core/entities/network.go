package entities

import (
	"sort"
	"time"

	"github.com/google/uuid"

	pkgerrors "netsync/pkg/errors"
)

// Network is a user-owned graph: a named collection of nodes and edges.
type Network struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Order         int       `json:"order"`
	OwnerID       string    `json:"owner_id"`
	IsAIGenerated bool      `json:"is_ai_generated"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewNetwork creates a network owned by ownerID. Order is assigned by the
// caller from the current list length; duplicate orders across concurrent
// writers are tolerated (see SortNetworks).
func NewNetwork(ownerID, name string, order int, isAI bool) (*Network, error) {
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("ownerID cannot be empty")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("network name cannot be empty")
	}

	now := time.Now().UTC()
	return &Network{
		ID:            uuid.NewString(),
		Name:          name,
		Order:         order,
		OwnerID:       ownerID,
		IsAIGenerated: isAI,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Rename updates the network name and bumps the modification timestamp
func (n *Network) Rename(name string) error {
	if name == "" {
		return pkgerrors.NewValidationError("network name cannot be empty")
	}
	n.Name = name
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// SortNetworks orders networks by their dense order value. Order is not
// guaranteed unique across write races, so creation time breaks ties to keep
// the list sequence stable.
func SortNetworks(networks []*Network) {
	sort.SliceStable(networks, func(i, j int) bool {
		if networks[i].Order != networks[j].Order {
			return networks[i].Order < networks[j].Order
		}
		return networks[i].CreatedAt.Before(networks[j].CreatedAt)
	})
}
