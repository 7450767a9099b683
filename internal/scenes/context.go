package scenes

import (
	"errors"
	"fmt"
	"strings"

	"shotline/internal/config"
	"shotline/internal/services"
	"shotline/internal/shots"
)

// Catalog bundles the scene database and asset catalog for a run.
type Catalog struct {
	Scenes *DB
	Assets *Assets
	// AssetsMissing is set when assets.yaml was absent and descriptions fall
	// back to raw ids.
	AssetsMissing bool
}

// LoadCatalog reads scenes_db.json and assets.yaml from the configured paths.
// A missing scenes database is an error; a missing assets file is tolerated.
func LoadCatalog(cfg *config.Config) (*Catalog, error) {
	db, err := LoadDB(cfg.Paths.ScenesDB)
	if err != nil {
		return nil, err
	}
	assets, err := LoadAssets(cfg.Paths.Assets)
	switch {
	case err == nil:
		return &Catalog{Scenes: db, Assets: assets}, nil
	case errors.Is(err, services.ErrMissingInput):
		return &Catalog{Scenes: db, Assets: &Assets{}, AssetsMissing: true}, nil
	default:
		return nil, err
	}
}

// Context is everything a prompt builder needs to know about a shot's scene.
type Context struct {
	SceneID      string
	Scene        Scene
	Location     string
	Wardrobe     string
	Moods        []string
	Trigger      string
	Style        string
	MusicSegment string
}

// MoodLine joins the mood keywords for display in a prompt.
func (c Context) MoodLine() string {
	return strings.Join(c.Moods, ", ")
}

// Resolve joins shot with its scene and catalog entries.
func (c *Catalog) Resolve(shot *shots.Shot) (Context, error) {
	ref := strings.TrimSpace(shot.SceneRef)
	if ref == "" {
		return Context{}, services.Wrap(services.ErrMissingInput, "", "resolve scene", fmt.Sprintf("shot %s has no scene_ref", shot.ID), nil)
	}
	scene, ok := c.Scenes.Get(ref)
	if !ok {
		return Context{}, services.Wrap(services.ErrMissingInput, "", "resolve scene", fmt.Sprintf("scene %s not in scenes db", ref), nil)
	}
	ctx := Context{
		SceneID:      ref,
		Scene:        scene,
		Location:     c.Assets.LocationDescription(scene.LocationID),
		Wardrobe:     c.Assets.WardrobeDescription(scene.WardrobeID),
		Moods:        append([]string(nil), scene.MoodKeywords...),
		MusicSegment: scene.MusicSegment,
	}
	if c.Assets != nil {
		ctx.Trigger = strings.TrimSpace(c.Assets.ProjectTrigger)
		ctx.Style = strings.TrimSpace(c.Assets.Style)
	}
	return ctx, nil
}
