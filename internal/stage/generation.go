package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"shotline/internal/fileutil"
	"shotline/internal/generation"
	"shotline/internal/logging"
	"shotline/internal/prompts"
	"shotline/internal/scenes"
	"shotline/internal/services"
	"shotline/internal/shots"
)

type generationStage struct {
	name   Name
	track  shots.Track
	deps   Deps
	logger *slog.Logger
	assets *scenes.Assets
}

func newGeneration(name Name, deps Deps) *generationStage {
	return &generationStage{
		name:   name,
		track:  name.Track(),
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, string(name)),
	}
}

func (g *generationStage) Name() Name { return g.name }

func (g *generationStage) Eligible(shot *shots.Shot) bool {
	if g.track == shots.TrackVideo {
		return shot.Video.Status == shots.StatusApproved && videoUnlocked(shot)
	}
	return shot.Stills.Status == shots.StatusApproved
}

// Prepare loads the asset catalog used for LoRA and identity settings. Video
// generation needs none of it.
func (g *generationStage) Prepare(ctx context.Context) error {
	if g.track == shots.TrackVideo {
		return nil
	}
	assets, err := scenes.LoadAssets(g.deps.Config.Paths.Assets)
	if err != nil {
		if !errors.Is(err, services.ErrMissingInput) {
			return err
		}
		logging.WarnWithContext(logging.WithContext(ctx, g.logger), "assets catalog missing", "assets_missing",
			logging.String("assets_path", g.deps.Config.Paths.Assets),
			logging.String(logging.FieldImpact, "images render without LoRA or identity reference"),
		)
		assets = &scenes.Assets{}
	}
	g.assets = assets
	return nil
}

func (g *generationStage) Execute(ctx context.Context, shot *shots.Shot) Outcome {
	state := shot.Track(g.track)
	if state.HasAsset() && !g.deps.Force {
		if fileutil.Exists(g.deps.Config.ProjectPath(state.AssetPath)) {
			return skipped(shot.ID, "asset exists: "+state.AssetPath)
		}
	}
	if strings.TrimSpace(state.PromptFile) == "" {
		return Failed(shot.ID, services.Wrap(services.ErrMissingInput, string(g.name), "generate", "prompt_file not set", nil))
	}
	prompt, err := prompts.Read(g.deps.Config.ProjectPath(state.PromptFile))
	if err != nil {
		return Failed(shot.ID, err)
	}

	var url string
	if g.track == shots.TrackVideo {
		url, err = g.renderVideo(ctx, shot, prompt)
	} else {
		url, err = g.renderImage(ctx, prompt)
	}
	if err != nil {
		return Failed(shot.ID, err)
	}

	version := state.Version + 1
	dest := g.destination(shot.ID, version)
	if err := g.deps.Generator.Download(ctx, url, dest); err != nil {
		return Failed(shot.ID, err)
	}
	logger := logging.WithContext(ctx, g.logger)
	logger.Info("asset saved",
		logging.String("asset_path", dest),
		logging.Int("version", version),
	)

	if g.track == shots.TrackStills && g.deps.Config.Media.FlatCopies {
		flat := filepath.Join(g.deps.Config.Paths.FlatOutput, shot.ID+filepath.Ext(dest))
		if err := fileutil.CopyFile(dest, flat); err != nil {
			logging.WarnWithContext(logger, "flat copy failed", "flat_copy_failed",
				logging.String("flat_path", flat),
				logging.String(logging.FieldImpact, "flat export folder is missing this shot"),
				logging.Error(err),
			)
		}
	}

	var stale []string
	if g.deps.Clean && state.HasAsset() {
		if old := g.deps.Config.ProjectPath(state.AssetPath); old != dest {
			stale = append(stale, old)
		}
	}

	rel := g.deps.Config.RelativeToProject(dest)
	stamp := shots.Timestamp(g.deps.now())
	track := g.track
	out := succeeded(shot.ID, rel, func(s *shots.Shot) {
		st := s.Track(track)
		st.Version = version
		st.AssetPath = rel
		st.Status = track.ReadyStatus()
		st.UpdatedAt = stamp
	})
	out.Cleanup = stale
	return out
}

func (g *generationStage) renderImage(ctx context.Context, prompt string) (string, error) {
	media := g.deps.Config.Media
	opts := generation.ImageOptions{
		Model:          media.ImageModel,
		ImageSize:      media.ImageSize,
		InferenceSteps: media.InferenceSteps,
		SafetyChecker:  media.SafetyChecker,
		OutputFormat:   media.OutputFormat,
	}
	assets := g.assets
	if assets == nil {
		assets = &scenes.Assets{}
	}
	if lora := strings.TrimSpace(assets.LoraURL); lora != "" {
		opts.Loras = []generation.Lora{{Path: lora, Scale: media.LoraScale}}
	}
	if ref := strings.TrimSpace(assets.FaceReferencePath); ref != "" {
		path := g.deps.Config.ProjectPath(ref)
		if fileutil.Exists(path) {
			url, err := g.deps.Generator.BindReference(ctx, path)
			if err != nil {
				return "", err
			}
			opts.IdentityURL = url
			opts.IdentityWeight = media.IdentityWeight
		} else {
			logging.WarnWithContext(logging.WithContext(ctx, g.logger), "face reference missing", "identity_missing",
				logging.String("reference_path", path),
				logging.String(logging.FieldImpact, "image renders without identity lock"),
			)
		}
	}
	return g.deps.Generator.GenerateImage(ctx, prompt, opts)
}

func (g *generationStage) renderVideo(ctx context.Context, shot *shots.Shot, prompt string) (string, error) {
	if !shot.Stills.HasAsset() {
		return "", services.Wrap(services.ErrMissingInput, string(g.name), "generate", "stills image not recorded", nil)
	}
	source := g.deps.Config.ProjectPath(shot.Stills.AssetPath)
	if !fileutil.Exists(source) {
		return "", services.Wrap(services.ErrMissingInput, string(g.name), "generate", fmt.Sprintf("stills image %s not found", shot.Stills.AssetPath), nil)
	}
	imageURL, err := g.deps.Generator.UploadAsset(ctx, source)
	if err != nil {
		return "", err
	}
	duration := strings.TrimSuffix(strings.TrimSpace(shot.Duration), "s")
	if duration == "" {
		duration = g.deps.Config.Media.VideoDuration
	}
	return g.deps.Generator.GenerateVideo(ctx, prompt, generation.VideoOptions{
		Model:    g.deps.Config.Media.VideoModel,
		ImageURL: imageURL,
		Duration: duration,
	})
}

func (g *generationStage) destination(id string, version int) string {
	if g.track == shots.TrackVideo {
		return filepath.Join(g.deps.Config.Paths.VideoOutput, fmt.Sprintf("%s_v%d.mp4", id, version))
	}
	return filepath.Join(g.deps.Config.Paths.ImagesOutput, fmt.Sprintf("%s_v%d%s", id, version, imageExtension(g.deps.Config.Media.OutputFormat)))
}

func imageExtension(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "png":
		return ".png"
	case "webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func (g *generationStage) HealthCheck(context.Context) Health {
	if err := g.deps.Config.RequireMedia(); err != nil {
		return Unhealthy(string(g.name), err.Error())
	}
	return Healthy(string(g.name))
}
