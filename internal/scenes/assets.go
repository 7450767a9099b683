package scenes

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"shotline/internal/services"
)

// Asset is a location or wardrobe entry of the catalog.
type Asset struct {
	Description string `yaml:"description"`
	IsOptimized bool   `yaml:"is_optimized"`
}

// Assets is the fixed visual catalog shared by every shot.
type Assets struct {
	ProjectTrigger    string           `yaml:"project_trigger"`
	LoraURL           string           `yaml:"lora_url"`
	FaceReferencePath string           `yaml:"face_reference_path"`
	Style             string           `yaml:"style"`
	Locations         map[string]Asset `yaml:"locations"`
	Wardrobe          map[string]Asset `yaml:"wardrobe"`
}

// LoadAssets reads assets.yaml.
func LoadAssets(path string) (*Assets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrMissingInput, "", "load assets", path+" not found", err)
		}
		return nil, fmt.Errorf("read assets: %w", err)
	}
	var assets Assets
	if err := yaml.Unmarshal(data, &assets); err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "load assets", path, err)
	}
	return &assets, nil
}

// LocationDescription returns the catalog text for id, or id itself when the
// catalog has no entry.
func (a *Assets) LocationDescription(id string) string {
	if a == nil {
		return id
	}
	return describe(a.Locations, id)
}

// WardrobeDescription returns the catalog text for id, or id itself.
func (a *Assets) WardrobeDescription(id string) string {
	if a == nil {
		return id
	}
	return describe(a.Wardrobe, id)
}

func describe(entries map[string]Asset, id string) string {
	if entry, ok := entries[id]; ok && strings.TrimSpace(entry.Description) != "" {
		return strings.TrimSpace(entry.Description)
	}
	return id
}
