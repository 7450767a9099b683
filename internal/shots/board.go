package shots

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Board is the ordered collection of shots persisted as one JSON object.
// Iteration follows insertion order.
type Board struct {
	order []string
	shots map[string]*Shot
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{shots: make(map[string]*Shot)}
}

// Len reports the number of shots.
func (b *Board) Len() int {
	return len(b.order)
}

// IDs returns shot identifiers in insertion order.
func (b *Board) IDs() []string {
	return append([]string(nil), b.order...)
}

// Get returns the shot stored under id.
func (b *Board) Get(id string) (*Shot, bool) {
	shot, ok := b.shots[id]
	return shot, ok
}

// Add appends a shot. Identifiers must be non-empty and unique.
func (b *Board) Add(shot *Shot) error {
	if shot == nil {
		return errors.New("nil shot")
	}
	id := strings.TrimSpace(shot.ID)
	if id == "" {
		return errors.New("shot id must not be empty")
	}
	if _, exists := b.shots[id]; exists {
		return fmt.Errorf("duplicate shot id %q", id)
	}
	shot.ID = id
	b.order = append(b.order, id)
	b.shots[id] = shot
	return nil
}

// Put replaces an existing shot in place, keeping its position.
func (b *Board) Put(shot *Shot) error {
	if shot == nil {
		return errors.New("nil shot")
	}
	if _, ok := b.shots[shot.ID]; !ok {
		return fmt.Errorf("unknown shot id %q", shot.ID)
	}
	b.shots[shot.ID] = shot
	return nil
}

// Shots returns the shots in insertion order.
func (b *Board) Shots() []*Shot {
	out := make([]*Shot, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.shots[id])
	}
	return out
}

// Select returns the ids of shots satisfying pred, in insertion order.
func (b *Board) Select(pred func(*Shot) bool) []string {
	var ids []string
	for _, id := range b.order {
		if pred == nil || pred(b.shots[id]) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	out := NewBoard()
	for _, shot := range b.Shots() {
		_ = out.Add(shot.Clone())
	}
	return out
}

// Marshal renders the board as indented JSON without HTML escaping.
func (b *Board) Marshal() ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, id := range b.order {
		if i > 0 {
			compact.WriteByte(',')
		}
		key, err := encodeJSON(id)
		if err != nil {
			return nil, err
		}
		value, err := encodeShot(b.shots[id])
		if err != nil {
			return nil, fmt.Errorf("shot %s: %w", id, err)
		}
		compact.Write(key)
		compact.WriteByte(':')
		compact.Write(value)
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Parse decodes a board document, enforcing the closed status sets.
func Parse(data []byte) (*Board, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	board := NewBoard()
	for _, id := range obj.keys {
		if strings.TrimSpace(id) == "" {
			return nil, errors.New("shot id must not be empty")
		}
		shot, err := decodeShot(id, obj.values[id])
		if err != nil {
			return nil, fmt.Errorf("shot %s: %w", id, err)
		}
		if err := board.Add(shot); err != nil {
			return nil, err
		}
	}
	return board, nil
}
