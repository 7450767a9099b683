package scenes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"shotline/internal/fileutil"
	"shotline/internal/services"
)

// Scene is one entry of scenes_db.json.
type Scene struct {
	Description  string   `json:"description"`
	LocationID   string   `json:"location_id"`
	WardrobeID   string   `json:"wardrobe_id"`
	MoodKeywords []string `json:"mood_keywords"`
	MusicSegment string   `json:"music_segment,omitempty"`
}

// DB is the ordered scene database keyed by scene id.
type DB struct {
	order  []string
	scenes map[string]Scene
}

// NewDB returns an empty scene database.
func NewDB() *DB {
	return &DB{scenes: make(map[string]Scene)}
}

// Add appends a scene. Ids must be non-empty and unique.
func (db *DB) Add(id string, scene Scene) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("scene id must not be empty")
	}
	if _, ok := db.scenes[id]; ok {
		return fmt.Errorf("duplicate scene id %q", id)
	}
	db.order = append(db.order, id)
	db.scenes[id] = scene
	return nil
}

// Get looks up a scene by id.
func (db *DB) Get(id string) (Scene, bool) {
	if db == nil {
		return Scene{}, false
	}
	scene, ok := db.scenes[id]
	return scene, ok
}

// IDs lists scene ids in file order.
func (db *DB) IDs() []string {
	return append([]string(nil), db.order...)
}

// Len reports the number of scenes.
func (db *DB) Len() int {
	return len(db.order)
}

// LoadDB reads scenes_db.json.
func LoadDB(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrMissingInput, "", "load scenes", path+" not found", err)
		}
		return nil, fmt.Errorf("read scenes db: %w", err)
	}
	db, err := parseDB(data)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "load scenes", path, err)
	}
	return db, nil
}

func parseDB(data []byte) (*DB, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("scenes db must be a JSON object")
	}
	db := NewDB()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, _ := tok.(string)
		var scene Scene
		if err := dec.Decode(&scene); err != nil {
			return nil, fmt.Errorf("scene %s: %w", id, err)
		}
		if err := db.Add(id, scene); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after scenes object")
	}
	return db, nil
}

// SaveDB writes the database atomically, preserving scene order.
func SaveDB(path string, db *DB) error {
	var compact bytes.Buffer
	enc := json.NewEncoder(&compact)
	enc.SetEscapeHTML(false)
	compact.WriteByte('{')
	for i, id := range db.order {
		if i > 0 {
			compact.WriteByte(',')
		}
		if err := enc.Encode(id); err != nil {
			return err
		}
		compact.WriteByte(':')
		if err := enc.Encode(db.scenes[id]); err != nil {
			return fmt.Errorf("scene %s: %w", id, err)
		}
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return err
	}
	out.WriteByte('\n')
	return fileutil.WriteFileAtomic(path, out.Bytes(), 0o644)
}
