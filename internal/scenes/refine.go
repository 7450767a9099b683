package scenes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"shotline/internal/fileutil"
	"shotline/internal/logging"
	"shotline/internal/services"
	"shotline/internal/services/llm"
	"shotline/internal/textutil"
)

const (
	refineMaxWords = 40
	defaultStyle   = "1850s Eastern European period film"
)

// TextGenerator is the slice of the generation adapter the refiner needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// RefineFailure records an entry the refiner could not polish.
type RefineFailure struct {
	ID  string
	Err error
}

// RefineResult summarizes one refiner pass.
type RefineResult struct {
	Refined []string
	Skipped []string
	Failed  []RefineFailure
}

// RefineAssets rewrites every wardrobe and location description that is not
// yet marked is_optimized, then saves the catalog back in place. Failed
// entries keep their text and stay unmarked so a later run retries them.
// Keys and comments the refiner does not touch are preserved.
func RefineAssets(ctx context.Context, path string, gen TextGenerator, logger *slog.Logger) (RefineResult, error) {
	logger = logging.NewComponentLogger(logger, "assets")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RefineResult{}, services.Wrap(services.ErrMissingInput, "", "refine assets", path+" not found", err)
		}
		return RefineResult{}, fmt.Errorf("read assets: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RefineResult{}, services.Wrap(services.ErrValidation, "", "refine assets", path, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return RefineResult{}, services.Wrap(services.ErrValidation, "", "refine assets", path+" must be a mapping", nil)
	}
	root := doc.Content[0]
	style := defaultStyle
	if node := mappingValue(root, "style"); node != nil && strings.TrimSpace(node.Value) != "" {
		style = strings.TrimSpace(node.Value)
	}

	var result RefineResult
	for _, section := range []struct{ key, category string }{
		{"wardrobe", "Wardrobe"},
		{"locations", "Location"},
	} {
		entries := mappingValue(root, section.key)
		if entries == nil || entries.Kind != yaml.MappingNode {
			continue
		}
		for i := 0; i+1 < len(entries.Content); i += 2 {
			id, entry := entries.Content[i].Value, entries.Content[i+1]
			if entry.Kind != yaml.MappingNode {
				continue
			}
			if optimized(entry) {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			current := ""
			if node := mappingValue(entry, "description"); node != nil {
				current = node.Value
			}
			refined, err := refineDescription(ctx, gen, section.category, style, current)
			if err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				logging.WarnWithContext(logger, "asset refinement failed", "asset_refine_failed",
					logging.String("asset_id", id),
					logging.String(logging.FieldErrorHint, "rerun `shotline assets refine` once the provider recovers"),
					logging.String(logging.FieldImpact, "description left unrefined"),
					logging.Error(err),
				)
				result.Failed = append(result.Failed, RefineFailure{ID: id, Err: err})
				continue
			}
			setMappingValue(entry, "description", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: refined})
			setMappingValue(entry, "is_optimized", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"})
			result.Refined = append(result.Refined, id)
			logger.Info("asset refined", logging.String("asset_id", id), logging.String("category", section.category))
		}
	}

	if len(result.Refined) == 0 {
		return result, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return result, fmt.Errorf("encode assets: %w", err)
	}
	if err := enc.Close(); err != nil {
		return result, fmt.Errorf("encode assets: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return result, fmt.Errorf("save assets: %w", err)
	}
	return result, nil
}

func refineDescription(ctx context.Context, gen TextGenerator, category, style, current string) (string, error) {
	system := fmt.Sprintf(`You are an expert visual costume and set designer for %s productions.
Rewrite the description below into an image-generation prompt fragment.

INPUT (%s): %q

RULES:
1. Visual facts only: materials, textures, colors, how light interacts with them.
2. Period and style accurate for %s.
3. No poetic language or emotional framing.
4. At most %d words.
5. Output only the new description.`, style, category, current, style, refineMaxWords)
	out, err := gen.GenerateText(ctx, system, "Refine this description.")
	if err != nil {
		return "", err
	}
	out = strings.Trim(textutil.CollapseWhitespace(llm.StripCodeFence(out)), `"'`)
	out = textutil.LimitWords(out, refineMaxWords)
	if out == "" {
		return "", services.Wrap(services.ErrValidation, "", "refine assets", "empty description returned", nil)
	}
	return out, nil
}

func optimized(entry *yaml.Node) bool {
	node := mappingValue(entry, "is_optimized")
	if node == nil {
		return false
	}
	var v bool
	return node.Decode(&v) == nil && v
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setMappingValue(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}
