package shots

import (
	"encoding/json"
	"fmt"
	"strings"
)

func decodeShot(id string, data []byte) (*Shot, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	shot := &Shot{ID: id, raw: obj}
	if shot.SceneRef, err = obj.text("scene_ref"); err != nil {
		return nil, err
	}
	if shot.Duration, err = obj.text("duration"); err != nil {
		return nil, err
	}
	if raw, ok := obj.values["brief"]; ok && !isNull(raw) {
		if shot.Brief, err = decodeBrief(raw); err != nil {
			return nil, fmt.Errorf("brief: %w", err)
		}
	}
	if raw, ok := obj.values["constraints"]; ok && !isNull(raw) {
		if _, err := decodeObject(raw); err != nil {
			return nil, fmt.Errorf("constraints: %w", err)
		}
		shot.Constraints = append([]byte(nil), raw...)
	}
	for _, track := range []Track{TrackStills, TrackVideo} {
		raw, ok := obj.values[string(track)]
		if !ok || isNull(raw) {
			return nil, fmt.Errorf("%s: track missing", track)
		}
		state, err := decodeTrack(track, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", track, err)
		}
		*shot.Track(track) = state
	}
	return shot, nil
}

func decodeBrief(data []byte) (Brief, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return Brief{}, err
	}
	brief := Brief{raw: obj}
	if brief.Visual, err = obj.text("visual"); err != nil {
		return Brief{}, err
	}
	if brief.Motion, err = obj.text("motion"); err != nil {
		return Brief{}, err
	}
	return brief, nil
}

func decodeTrack(track Track, data []byte) (TrackState, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return TrackState{}, err
	}
	state := TrackState{raw: obj}
	status, err := obj.text("status")
	if err != nil {
		return TrackState{}, err
	}
	state.Status = Status(strings.TrimSpace(status))
	if !track.Valid(state.Status) {
		return TrackState{}, fmt.Errorf("invalid status %q", status)
	}
	fields := []struct {
		key string
		dst *string
	}{
		{"prompt_file", &state.PromptFile},
		{track.AssetKey(), &state.AssetPath},
		{"inspector_feedback", &state.InspectorFeedback},
		{"review_notes", &state.ReviewNotes},
		{"updated_at", &state.UpdatedAt},
	}
	for _, f := range fields {
		if *f.dst, err = obj.text(f.key); err != nil {
			return TrackState{}, err
		}
	}
	if raw, ok := obj.values["version"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &state.Version); err != nil {
			return TrackState{}, fmt.Errorf("version: expected integer")
		}
		if state.Version < 0 {
			return TrackState{}, fmt.Errorf("version: must not be negative")
		}
	}
	return state, nil
}

func encodeShot(shot *Shot) ([]byte, error) {
	obj := shot.raw.clone()
	fresh := obj.values == nil
	if err := obj.setText("scene_ref", shot.SceneRef, fresh); err != nil {
		return nil, err
	}
	if err := obj.setText("duration", shot.Duration, false); err != nil {
		return nil, err
	}
	brief := shot.Brief.raw.clone()
	edited := shot.Brief.Visual != "" || shot.Brief.Motion != ""
	if fresh || edited || brief.values != nil {
		if err := brief.setText("visual", shot.Brief.Visual, fresh); err != nil {
			return nil, err
		}
		if err := brief.setText("motion", shot.Brief.Motion, fresh); err != nil {
			return nil, err
		}
		if err := obj.set("brief", json.RawMessage(brief.encode()), true); err != nil {
			return nil, err
		}
	}
	if len(shot.Constraints) > 0 {
		if err := obj.set("constraints", json.RawMessage(shot.Constraints), true); err != nil {
			return nil, err
		}
	}
	for _, track := range []Track{TrackStills, TrackVideo} {
		encoded, err := encodeTrack(track, *shot.Track(track))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", track, err)
		}
		if err := obj.set(string(track), json.RawMessage(encoded), true); err != nil {
			return nil, err
		}
	}
	return obj.encode(), nil
}

// encodeTrack writes the modelled members over the loaded ones. Tracks built
// in memory get the full member set; loaded tracks keep their shape.
func encodeTrack(track Track, state TrackState) ([]byte, error) {
	obj := state.raw.clone()
	fresh := obj.values == nil
	if err := obj.set("status", string(state.Status), true); err != nil {
		return nil, err
	}
	if err := obj.setText("prompt_file", state.PromptFile, fresh); err != nil {
		return nil, err
	}
	if err := obj.setText(track.AssetKey(), state.AssetPath, fresh); err != nil {
		return nil, err
	}
	if err := obj.setInt("version", state.Version, fresh); err != nil {
		return nil, err
	}
	optional := []struct{ key, value string }{
		{"inspector_feedback", state.InspectorFeedback},
		{"review_notes", state.ReviewNotes},
		{"updated_at", state.UpdatedAt},
	}
	for _, f := range optional {
		if err := obj.setText(f.key, f.value, false); err != nil {
			return nil, err
		}
	}
	return obj.encode(), nil
}
