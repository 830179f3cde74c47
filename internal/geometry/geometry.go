package geometry

import (
	"fmt"
	"sync"

	"parktrust/pkg/sentinel"
)

// Point is a position on the lot grid. Distances are walking distances along
// grid aisles, so Manhattan rather than Euclidean.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Distance returns the Manhattan distance between two grid points.
func Distance(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Index maps gate and slot identifiers to their fixed grid positions.
// Positions are reference data: registered once at startup and read-only
// afterwards, but registration and lookup are still guarded so layouts can
// be reloaded without tearing down the index.
type Index struct {
	mu    sync.RWMutex
	gates map[string]Point
	slots map[string]Point
}

func NewIndex() *Index {
	return &Index{
		gates: make(map[string]Point),
		slots: make(map[string]Point),
	}
}

// RegisterGate records a gate position, replacing any previous entry.
func (i *Index) RegisterGate(gateID string, pos Point) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.gates[gateID] = pos
}

// RegisterSlot records a slot position, replacing any previous entry.
func (i *Index) RegisterSlot(slotID string, pos Point) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.slots[slotID] = pos
}

// GatePosition returns the position of a gate, or sentinel.ErrNotFound when the
// gate was never registered.
func (i *Index) GatePosition(gateID string) (Point, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	pos, ok := i.gates[gateID]
	if !ok {
		return Point{}, fmt.Errorf("gate %q: %w", gateID, sentinel.ErrNotFound)
	}
	return pos, nil
}

// SlotPosition returns the position of a slot, or sentinel.ErrNotFound.
func (i *Index) SlotPosition(slotID string) (Point, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	pos, ok := i.slots[slotID]
	if !ok {
		return Point{}, fmt.Errorf("slot %q: %w", slotID, sentinel.ErrNotFound)
	}
	return pos, nil
}

// GateDistance returns the Manhattan distance from a gate to a slot.
func (i *Index) GateDistance(gateID, slotID string) (int, error) {
	gate, err := i.GatePosition(gateID)
	if err != nil {
		return 0, err
	}
	slot, err := i.SlotPosition(slotID)
	if err != nil {
		return 0, err
	}
	return Distance(gate, slot), nil
}
