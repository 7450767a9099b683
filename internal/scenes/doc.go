// Package scenes owns the creative inputs that sit beside the shot board:
// the scene database (scenes_db.json), the asset catalog (assets.yaml), and
// the story template that seeds a new board.
//
// Resolve joins a shot with its scene, location, and wardrobe so prompt
// builders never touch these files directly. Initialize expands a template
// into SHOT_### entries, all PENDING. RefineAssets polishes catalog
// descriptions once, marking each entry is_optimized so reruns skip it.
package scenes
