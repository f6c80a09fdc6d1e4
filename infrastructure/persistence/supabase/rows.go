package supabase

import (
	"time"

	"netsync/domain/core/entities"
	"netsync/domain/core/valueobjects"
)

// Row types mirror the remote tables column-for-column. Entity fields that
// the tables split or rename (position, node type) are mapped here so the
// rest of the engine only sees domain entities.

type networkRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	OwnerID     string    `json:"owner_id"`
	IsAI        bool      `json:"is_ai"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type nodeRow struct {
	ID         string  `json:"id"`
	NetworkID  string  `json:"network_id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	XPosition  float64 `json:"x_position"`
	YPosition  float64 `json:"y_position"`
	Color      string  `json:"color"`
	Notes      string  `json:"notes"`
	ProfileURL string  `json:"profile_url"`
	ImageURL   string  `json:"image_url"`
	Address    string  `json:"address"`
	Date       string  `json:"date"`
}

type edgeRow struct {
	ID           string `json:"id"`
	NetworkID    string `json:"network_id"`
	SourceID     string `json:"source_id"`
	TargetID     string `json:"target_id"`
	SourceHandle string `json:"source_handle"`
	TargetHandle string `json:"target_handle"`
	Label        string `json:"label"`
	Color        string `json:"color"`
	Notes        string `json:"notes"`
}

type todoRow struct {
	ID        string     `json:"id"`
	NodeID    string     `json:"node_id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	DueDate   *time.Time `json:"due_date"`
}

func networkRowFromEntity(n *entities.Network) networkRow {
	return networkRow{
		ID:          n.ID,
		Name:        n.Name,
		Description: n.Description,
		Order:       n.Order,
		OwnerID:     n.OwnerID,
		IsAI:        n.IsAIGenerated,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func (r networkRow) toEntity() *entities.Network {
	return &entities.Network{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		Order:         r.Order,
		OwnerID:       r.OwnerID,
		IsAIGenerated: r.IsAI,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func nodeRowFromEntity(n *entities.Node) nodeRow {
	return nodeRow{
		ID:         n.ID,
		NetworkID:  n.NetworkID,
		Name:       n.Name,
		Type:       string(n.Kind),
		XPosition:  n.Position.X,
		YPosition:  n.Position.Y,
		Color:      n.Color,
		Notes:      n.Notes,
		ProfileURL: n.ProfileURL,
		ImageURL:   n.ImageURL,
		Address:    n.Address,
		Date:       n.Date,
	}
}

func (r nodeRow) toEntity() *entities.Node {
	kind := entities.NodeKind(r.Type)
	if !kind.IsValid() {
		kind = entities.KindUncategorized
	}
	return &entities.Node{
		ID:         r.ID,
		NetworkID:  r.NetworkID,
		Kind:       kind,
		Name:       r.Name,
		Position:   valueobjects.NewPosition(r.XPosition, r.YPosition),
		Color:      r.Color,
		Notes:      r.Notes,
		ProfileURL: r.ProfileURL,
		ImageURL:   r.ImageURL,
		Address:    r.Address,
		Date:       r.Date,
	}
}

func edgeRowFromEntity(e *entities.Edge) edgeRow {
	return edgeRow{
		ID:           e.ID,
		NetworkID:    e.NetworkID,
		SourceID:     e.SourceNodeID,
		TargetID:     e.TargetNodeID,
		SourceHandle: e.SourceHandle.String(),
		TargetHandle: e.TargetHandle.String(),
		Label:        e.Label,
		Color:        e.Color,
		Notes:        e.Notes,
	}
}

func (r edgeRow) toEntity() *entities.Edge {
	return &entities.Edge{
		ID:           r.ID,
		NetworkID:    r.NetworkID,
		SourceNodeID: r.SourceID,
		TargetNodeID: r.TargetID,
		SourceHandle: valueobjects.Handle(r.SourceHandle),
		TargetHandle: valueobjects.Handle(r.TargetHandle),
		Label:        r.Label,
		Color:        r.Color,
		Notes:        r.Notes,
	}
}

func todoRowFromEntity(t *entities.Todo) todoRow {
	return todoRow{
		ID:        t.ID,
		NodeID:    t.NodeID,
		Text:      t.Text,
		Completed: t.Completed,
		DueDate:   t.DueDate,
	}
}

func (r todoRow) toEntity() *entities.Todo {
	return &entities.Todo{
		ID:        r.ID,
		NodeID:    r.NodeID,
		Text:      r.Text,
		Completed: r.Completed,
		DueDate:   r.DueDate,
	}
}
