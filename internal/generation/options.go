package generation

import "strings"

// Lora references a LoRA weight file applied to the image model.
type Lora struct {
	Path  string
	Scale float64
}

// ImageOptions controls one image generation call.
type ImageOptions struct {
	Model          string
	ImageSize      string
	InferenceSteps int
	SafetyChecker  bool
	OutputFormat   string
	Loras          []Lora
	// IdentityURL, when set, locks the subject's face to a reference image.
	IdentityURL    string
	IdentityWeight float64
}

// VideoOptions controls one image-to-video call.
type VideoOptions struct {
	Model    string
	ImageURL string
	Duration string
}

// ImageArguments renders the provider payload for an image request.
func ImageArguments(prompt string, opts ImageOptions) map[string]any {
	args := map[string]any{
		"prompt":                strings.TrimSpace(prompt),
		"enable_safety_checker": opts.SafetyChecker,
	}
	if opts.ImageSize != "" {
		args["image_size"] = opts.ImageSize
	}
	if opts.InferenceSteps > 0 {
		args["num_inference_steps"] = opts.InferenceSteps
	}
	if opts.OutputFormat != "" {
		args["output_format"] = opts.OutputFormat
	}
	loras := make([]map[string]any, 0, len(opts.Loras))
	for _, lora := range opts.Loras {
		if strings.TrimSpace(lora.Path) == "" {
			continue
		}
		loras = append(loras, map[string]any{"path": lora.Path, "scale": lora.Scale})
	}
	if len(loras) > 0 {
		args["loras"] = loras
	}
	if opts.IdentityURL != "" {
		args["image_prompts"] = []map[string]any{{
			"image_url": opts.IdentityURL,
			"type":      "image_prompt",
			"weight":    opts.IdentityWeight,
		}}
	}
	return args
}

// VideoArguments renders the provider payload for an image-to-video request.
func VideoArguments(prompt string, opts VideoOptions) map[string]any {
	args := map[string]any{
		"prompt":    strings.TrimSpace(prompt),
		"image_url": opts.ImageURL,
	}
	if d := strings.TrimSuffix(strings.TrimSpace(opts.Duration), "s"); d != "" {
		args["duration"] = d
	}
	return args
}
