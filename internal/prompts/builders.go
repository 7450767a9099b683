package prompts

import (
	"fmt"
	"strings"

	"shotline/internal/scenes"
	"shotline/internal/shots"
)

// Request is a system/user pair for one text generation call.
type Request struct {
	System string
	User   string
}

const defaultStyle = "1850s period piece, cinematic, hyper-realistic, Eastern European atmosphere"

const startFrameRule = `THE T=0 RULE:
You receive an ACTION. Describe the state immediately BEFORE that action completes, never its result.
- "She lights the candle" -> she holds an UNLIT candle near a flame.
- "She opens the door" -> her hand reaches for the handle of a CLOSED door.
- "She bursts into tears" -> her eyes well up, no tears falling yet.`

const modestyRules = `MODESTY:
- Sleeves cover the elbows.
- Neckline is high.
- Skirt covers the knees.
- Fit is loose.`

const videoSafetyRules = `MOTION SAFETY:
1. No morphing: objects never turn into other objects.
2. Prefer slow motion; fast action smears in generated video.
3. One camera move at a time.
4. The motion must start from the existing still frame.
5. No violence or gore.`

// StillsAuthoring builds the request that drafts a still-image prompt.
func StillsAuthoring(shot *shots.Shot, sc scenes.Context) Request {
	style := sc.Style
	if style == "" {
		style = defaultStyle
	}
	var system strings.Builder
	system.WriteString("You are a cinematographer writing image-generation prompts.\n")
	system.WriteString("Your goal is the STATIC START FRAME (T=0) of a video shot.\n\n")
	system.WriteString(startFrameRule)
	system.WriteString("\n\nOUTPUT RULES:\n")
	system.WriteString("1. Output only the raw prompt, no introduction.\n")
	fmt.Fprintf(&system, "2. Style: %s.\n", style)
	system.WriteString("3. Use the location and wardrobe descriptions precisely.\n")
	system.WriteString("4. Translate the mood keywords into concrete lighting.\n")
	system.WriteString("5. Respect the camera and technical constraints.\n")
	if sc.Trigger != "" {
		fmt.Fprintf(&system, "6. Refer to the main character as %q.\n", sc.Trigger)
	}

	var user strings.Builder
	user.WriteString("--- BRIEF ---\n")
	fmt.Fprintf(&user, "VISUAL ACTION: %s\n", shot.Brief.Visual)
	fmt.Fprintf(&user, "MOTION THAT FOLLOWS: %s\n", shot.Brief.Motion)
	user.WriteString("\n--- ASSETS ---\n")
	fmt.Fprintf(&user, "LOCATION: %s\n", sc.Location)
	fmt.Fprintf(&user, "WARDROBE: %s\n", sc.Wardrobe)
	fmt.Fprintf(&user, "MOOD: %s\n", sc.MoodLine())
	fmt.Fprintf(&user, "TECHNICAL CONSTRAINTS: %s\n", constraintLine(shot))
	user.WriteString("\n--- TASK ---\n")
	user.WriteString("Write the prompt for the START FRAME (T=0). If the action changes an object, describe its initial state.")
	return Request{System: system.String(), User: user.String()}
}

// VideoAuthoring builds the request that drafts an image-to-video motion prompt.
func VideoAuthoring(shot *shots.Shot, sc scenes.Context) Request {
	system := `You write motion prompts for an image-to-video model.
The source image already exists. Describe only what moves.

RULES:
1. Do not describe the character's appearance again.
2. Use professional camera terms (pan, tilt, push in, rack focus).
3. At most three sentences.
4. Motion must be physically possible for a person and a camera.
5. Structure: "Camera: <movement>. Action: <character movement>. Atmosphere: <wind/light changes>."`

	var user strings.Builder
	fmt.Fprintf(&user, "STATIC IMAGE SUBJECT: %s\n", shot.Brief.Visual)
	fmt.Fprintf(&user, "REQUIRED MOTION: %s\n", shot.Brief.Motion)
	fmt.Fprintf(&user, "MOOD: %s\n", sc.MoodLine())
	if line := constraintLine(shot); line != "none" {
		fmt.Fprintf(&user, "TECHNICAL CONSTRAINTS: %s\n", line)
	}
	user.WriteString("\nWrite the motion prompt:")
	return Request{System: system, User: user.String()}
}

// StillsInspection builds the corrective request for a drafted still prompt.
func StillsInspection(shot *shots.Shot, current string) Request {
	var system strings.Builder
	system.WriteString("ROLE: production supervisor fixing image prompts.\n\n--- RULES ---\n")
	system.WriteString(modestyRules)
	system.WriteString("\n\n")
	system.WriteString(startFrameRule)
	fmt.Fprintf(&system, "\n\nTECHNICAL CONSTRAINTS: %s\n", constraintLine(shot))
	system.WriteString("\n--- CONTEXT ---\n")
	fmt.Fprintf(&system, "BRIEF ACTION: %s\n", shot.Brief.Visual)
	fmt.Fprintf(&system, "REQUIRED MOTION: %s\n", shot.Brief.Motion)
	system.WriteString("\n--- INSTRUCTIONS ---\n")
	system.WriteString("- Fix any modesty violation.\n")
	system.WriteString("- Fix any T=0 violation (the prompt shows the result instead of the start).\n")
	system.WriteString("- If the prompt already complies, return it unchanged apart from light polish.\n")
	system.WriteString("Output only the final prompt text.")
	return Request{System: system.String(), User: "INPUT PROMPT:\n" + strings.TrimSpace(current)}
}

// VideoInspection builds the corrective request for a drafted motion prompt.
func VideoInspection(shot *shots.Shot, current string) Request {
	var system strings.Builder
	system.WriteString("ROLE: video production supervisor for an image-to-video model.\n\n")
	system.WriteString(videoSafetyRules)
	system.WriteString("\n\n--- CONTEXT ---\n")
	fmt.Fprintf(&system, "ORIGINAL VISUAL: %s\n", shot.Brief.Visual)
	fmt.Fprintf(&system, "REQUIRED MOTION: %s\n", shot.Brief.Motion)
	system.WriteString("\n--- INSTRUCTIONS ---\n")
	system.WriteString("1. Tone fast running or fighting down to a tense stance or a jog.\n")
	system.WriteString("2. Keep camera movement simple and cinematic.\n")
	system.WriteString("3. Fix anything that contradicts the start frame.\n")
	system.WriteString("4. If the prompt already complies, return it unchanged.\n")
	system.WriteString("Output only the final prompt text.")
	return Request{System: system.String(), User: "INPUT PROMPT:\n" + strings.TrimSpace(current)}
}

// Authoring dispatches to the builder for track.
func Authoring(track shots.Track, shot *shots.Shot, sc scenes.Context) Request {
	if track == shots.TrackVideo {
		return VideoAuthoring(shot, sc)
	}
	return StillsAuthoring(shot, sc)
}

// Inspection dispatches to the corrective builder for track.
func Inspection(track shots.Track, shot *shots.Shot, current string) Request {
	if track == shots.TrackVideo {
		return VideoInspection(shot, current)
	}
	return StillsInspection(shot, current)
}

func constraintLine(shot *shots.Shot) string {
	pairs, err := shot.ConstraintPairs()
	if err != nil || len(pairs) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.Name+"="+p.Value)
	}
	return strings.Join(parts, ", ")
}
