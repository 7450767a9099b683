package scenes

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"shotline/internal/services"
	"shotline/internal/shots"
)

//go:embed default_story.yaml
var defaultStory []byte

// Beat is one shot of a template scene.
type Beat struct {
	Framing string `yaml:"framing"`
	Action  string `yaml:"action"`
	Motion  string `yaml:"motion"`
}

// UnmarshalYAML accepts either a [framing, action, motion] triple or a mapping.
func (b *Beat) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var parts []string
		if err := node.Decode(&parts); err != nil {
			return err
		}
		if len(parts) != 3 {
			return fmt.Errorf("line %d: beat needs [framing, action, motion], got %d items", node.Line, len(parts))
		}
		b.Framing, b.Action, b.Motion = parts[0], parts[1], parts[2]
		return nil
	}
	type plain Beat
	return node.Decode((*plain)(b))
}

// Visual renders the brief text for the beat.
func (b Beat) Visual() string {
	framing := strings.TrimSuffix(strings.TrimSpace(b.Framing), ".")
	action := strings.TrimSpace(b.Action)
	if framing == "" {
		return action
	}
	return framing + ". " + action
}

// ConstraintSet is an ordered name → scalar mapping.
type ConstraintSet struct {
	keys   []string
	values map[string]any
}

// UnmarshalYAML keeps the mapping order of the document.
func (c *ConstraintSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: constraints must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: constraint %q must be a scalar", val.Line, key.Value)
		}
		var v any
		if err := val.Decode(&v); err != nil {
			return err
		}
		c.Set(key.Value, v)
	}
	return nil
}

// Set assigns name, keeping an existing name in place.
func (c *ConstraintSet) Set(name string, value any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	if _, ok := c.values[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.values[name] = value
}

// Merge returns base overlaid with c.
func (c ConstraintSet) Merge(over ConstraintSet) ConstraintSet {
	var out ConstraintSet
	for _, k := range c.keys {
		out.Set(k, c.values[k])
	}
	for _, k := range over.keys {
		out.Set(k, over.values[k])
	}
	return out
}

// Len reports the number of constraints.
func (c ConstraintSet) Len() int {
	return len(c.keys)
}

// JSON renders the set as a JSON object in insertion order.
func (c ConstraintSet) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := enc.Encode(c.values[k]); err != nil {
			return nil, fmt.Errorf("constraint %s: %w", k, err)
		}
	}
	buf.WriteByte('}')
	var out bytes.Buffer
	if err := json.Compact(&out, buf.Bytes()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// TemplateScene is a scene plus its beats.
type TemplateScene struct {
	ID           string        `yaml:"id"`
	Description  string        `yaml:"description"`
	LocationID   string        `yaml:"location_id"`
	WardrobeID   string        `yaml:"wardrobe_id"`
	MoodKeywords []string      `yaml:"mood_keywords"`
	MusicSegment string        `yaml:"music_segment"`
	Constraints  ConstraintSet `yaml:"constraints"`
	Beats        []Beat        `yaml:"beats"`
}

// Template is a story outline that Expand turns into a board.
type Template struct {
	Duration    string          `yaml:"duration"`
	Constraints ConstraintSet   `yaml:"constraints"`
	Scenes      []TemplateScene `yaml:"scenes"`
}

// DefaultTemplate returns the built-in story.
func DefaultTemplate() (*Template, error) {
	return ParseTemplate(defaultStory)
}

// LoadTemplate reads a story template from disk.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrMissingInput, "", "load template", path+" not found", err)
		}
		return nil, fmt.Errorf("read template: %w", err)
	}
	tmpl, err := ParseTemplate(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tmpl, nil
}

// ParseTemplate decodes and validates a template document.
func ParseTemplate(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "parse template", "", err)
	}
	if err := tmpl.validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "parse template", "", err)
	}
	return &tmpl, nil
}

func (t *Template) validate() error {
	if len(t.Scenes) == 0 {
		return errors.New("template has no scenes")
	}
	seen := make(map[string]bool, len(t.Scenes))
	for i, scene := range t.Scenes {
		id := strings.TrimSpace(scene.ID)
		if id == "" {
			return fmt.Errorf("scene %d: id required", i+1)
		}
		if seen[id] {
			return fmt.Errorf("duplicate scene id %q", id)
		}
		seen[id] = true
		if len(scene.Beats) == 0 {
			return fmt.Errorf("scene %s: no beats", id)
		}
		for j, beat := range scene.Beats {
			if strings.TrimSpace(beat.Action) == "" {
				return fmt.Errorf("scene %s beat %d: action required", id, j+1)
			}
		}
	}
	return nil
}

// ShotCount is the number of shots Expand produces.
func (t *Template) ShotCount() int {
	n := 0
	for _, scene := range t.Scenes {
		n += len(scene.Beats)
	}
	return n
}

// ExpandOptions sets the board-relative prompt directories.
type ExpandOptions struct {
	StillsPromptDir string
	VideoPromptDir  string
}

// Expand builds a fresh board and scene database from the template. Shots are
// numbered from 1 across all scenes; both tracks start PENDING with version 0.
func Expand(t *Template, opts ExpandOptions) (*shots.Board, *DB, error) {
	stillsDir := strings.TrimSpace(opts.StillsPromptDir)
	if stillsDir == "" {
		stillsDir = "prompts/stills"
	}
	videoDir := strings.TrimSpace(opts.VideoPromptDir)
	if videoDir == "" {
		videoDir = "prompts/video"
	}
	duration := strings.TrimSpace(t.Duration)
	if duration == "" {
		duration = "5s"
	}

	board := shots.NewBoard()
	db := NewDB()
	n := 0
	for _, scene := range t.Scenes {
		if err := db.Add(scene.ID, Scene{
			Description:  scene.Description,
			LocationID:   scene.LocationID,
			WardrobeID:   scene.WardrobeID,
			MoodKeywords: append([]string{}, scene.MoodKeywords...),
			MusicSegment: scene.MusicSegment,
		}); err != nil {
			return nil, nil, err
		}
		constraints, err := t.Constraints.Merge(scene.Constraints).JSON()
		if err != nil {
			return nil, nil, fmt.Errorf("scene %s: %w", scene.ID, err)
		}
		for _, beat := range scene.Beats {
			n++
			shot := shots.NewShot(shots.IDForNumber(n))
			shot.SceneRef = scene.ID
			shot.Duration = duration
			shot.Brief.Visual = beat.Visual()
			shot.Brief.Motion = strings.TrimSpace(beat.Motion)
			shot.Constraints = append([]byte(nil), constraints...)
			file := fmt.Sprintf("shot_%03d.txt", n)
			shot.Stills.PromptFile = path.Join(filepath.ToSlash(stillsDir), file)
			shot.Video.PromptFile = path.Join(filepath.ToSlash(videoDir), file)
			if err := board.Add(shot); err != nil {
				return nil, nil, err
			}
		}
	}
	return board, db, nil
}
