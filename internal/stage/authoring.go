package stage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"shotline/internal/logging"
	"shotline/internal/prompts"
	"shotline/internal/scenes"
	"shotline/internal/services"
	"shotline/internal/shots"
)

type authoring struct {
	name    Name
	track   shots.Track
	deps    Deps
	logger  *slog.Logger
	catalog *scenes.Catalog
	loadErr error
}

func newAuthoring(name Name, deps Deps) *authoring {
	return &authoring{
		name:   name,
		track:  name.Track(),
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, string(name)),
	}
}

func (a *authoring) Name() Name { return a.name }

func (a *authoring) Eligible(shot *shots.Shot) bool {
	if a.track == shots.TrackStills {
		return shot.Stills.Status == shots.StatusPending
	}
	switch shot.Video.Status {
	case shots.StatusPending, shots.StatusReadyForPrompt:
		return videoUnlocked(shot)
	}
	return false
}

// Prepare loads the scene catalog. A missing catalog is not fatal here; each
// shot then fails with the missing-input error.
func (a *authoring) Prepare(ctx context.Context) error {
	a.catalog, a.loadErr = scenes.LoadCatalog(a.deps.Config)
	if a.loadErr != nil {
		logging.WarnWithContext(logging.WithContext(ctx, a.logger), "scene catalog unavailable", "catalog_unavailable",
			logging.String(logging.FieldErrorHint, "run `shotline shots init` or check paths.scenes_db"),
			logging.String(logging.FieldImpact, "every selected shot will fail"),
			logging.Error(a.loadErr),
		)
		return nil
	}
	if a.catalog.AssetsMissing {
		logging.WarnWithContext(logging.WithContext(ctx, a.logger), "assets catalog missing", "assets_missing",
			logging.String("assets_path", a.deps.Config.Paths.Assets),
			logging.String(logging.FieldImpact, "location and wardrobe fall back to raw ids"),
		)
	}
	return nil
}

func (a *authoring) Execute(ctx context.Context, shot *shots.Shot) Outcome {
	if a.loadErr != nil {
		return Failed(shot.ID, a.loadErr)
	}
	sc, err := a.catalog.Resolve(shot)
	if err != nil {
		return Failed(shot.ID, err)
	}
	req := prompts.Authoring(a.track, shot, sc)
	raw, err := a.deps.Generator.GenerateText(ctx, req.System, req.User)
	if err != nil {
		return Failed(shot.ID, err)
	}
	text := prompts.Normalize(raw)
	if text == "" {
		return Failed(shot.ID, services.Wrap(services.ErrValidation, string(a.name), "author", "model returned an empty prompt", nil))
	}

	promptFile := strings.TrimSpace(shot.Track(a.track).PromptFile)
	if promptFile == "" {
		promptFile = a.defaultPromptFile(shot.ID)
	}
	dest := a.deps.Config.ProjectPath(promptFile)
	if err := prompts.Write(dest, text); err != nil {
		return Failed(shot.ID, fmt.Errorf("write prompt: %w", err))
	}
	logging.WithContext(ctx, a.logger).Info("prompt drafted",
		logging.String("prompt_file", promptFile),
		logging.Int("words", len(strings.Fields(text))),
	)

	stamp := shots.Timestamp(a.deps.now())
	track := a.track
	return succeeded(shot.ID, promptFile, func(s *shots.Shot) {
		state := s.Track(track)
		state.PromptFile = promptFile
		state.Status = shots.StatusPromptReady
		state.InspectorFeedback = ""
		state.UpdatedAt = stamp
	})
}

func (a *authoring) defaultPromptFile(id string) string {
	dir := a.deps.Config.Paths.StillsPrompts
	if a.track == shots.TrackVideo {
		dir = a.deps.Config.Paths.VideoPrompts
	}
	return a.deps.Config.RelativeToProject(filepath.Join(dir, strings.ToLower(id)+".txt"))
}

func (a *authoring) HealthCheck(context.Context) Health {
	if err := a.deps.Config.RequireLLM(); err != nil {
		return Unhealthy(string(a.name), err.Error())
	}
	if _, err := scenes.LoadDB(a.deps.Config.Paths.ScenesDB); err != nil {
		return Unhealthy(string(a.name), err.Error())
	}
	return Healthy(string(a.name))
}
