package lot

import (
	"encoding/json"
	"fmt"
	"os"

	"parktrust/internal/geometry"
)

// Gate is a fixed entry point used as the distance origin for allocation.
type Gate struct {
	ID       string         `json:"id"`
	Position geometry.Point `json:"position"`
}

// SlotSpec describes one physical slot in the layout file. Occupancy state is
// not part of the layout; every slot starts Free and reaches other states only
// through the allocation flow.
type SlotSpec struct {
	ID       string         `json:"id"`
	Position geometry.Point `json:"position"`
}

// Layout is the physical description of one parking lot.
type Layout struct {
	Gates []Gate     `json:"gates"`
	Slots []SlotSpec `json:"slots"`
}

// Default returns the reference lot used in development and tests: two gates
// on the y=0 edge and a 2x2 grid of slots.
func Default() Layout {
	return Layout{
		Gates: []Gate{
			{ID: "Gate_A", Position: geometry.Point{X: 0, Y: 0}},
			{ID: "Gate_B", Position: geometry.Point{X: 20, Y: 0}},
		},
		Slots: []SlotSpec{
			{ID: "A1", Position: geometry.Point{X: 0, Y: 10}},
			{ID: "A2", Position: geometry.Point{X: 0, Y: 20}},
			{ID: "B1", Position: geometry.Point{X: 20, Y: 10}},
			{ID: "B2", Position: geometry.Point{X: 20, Y: 20}},
		},
	}
}

// Load reads a layout document from disk.
func Load(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout file: %w", err)
	}
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("parse layout file: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate rejects layouts that would break allocation: duplicate identifiers
// or a lot with no gates or no slots.
func (l Layout) Validate() error {
	if len(l.Gates) == 0 {
		return fmt.Errorf("layout has no gates")
	}
	if len(l.Slots) == 0 {
		return fmt.Errorf("layout has no slots")
	}
	seen := make(map[string]struct{}, len(l.Gates)+len(l.Slots))
	for _, g := range l.Gates {
		if g.ID == "" {
			return fmt.Errorf("gate with empty id")
		}
		if _, dup := seen[g.ID]; dup {
			return fmt.Errorf("duplicate gate id %q", g.ID)
		}
		seen[g.ID] = struct{}{}
	}
	for _, s := range l.Slots {
		if s.ID == "" {
			return fmt.Errorf("slot with empty id")
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("duplicate slot id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// Apply registers every gate and slot position with the geometry index.
func (l Layout) Apply(idx *geometry.Index) {
	for _, g := range l.Gates {
		idx.RegisterGate(g.ID, g.Position)
	}
	for _, s := range l.Slots {
		idx.RegisterSlot(s.ID, s.Position)
	}
}
