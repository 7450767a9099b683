package shots

import (
	"fmt"
	"strings"
)

// Track names one of the two per-shot pipelines.
type Track string

const (
	TrackStills Track = "stills"
	TrackVideo  Track = "video"
)

// ParseTrack accepts "stills"/"still"/"image" and "video".
func ParseTrack(value string) (Track, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "stills", "still", "image", "images":
		return TrackStills, nil
	case "video", "videos":
		return TrackVideo, nil
	default:
		return "", fmt.Errorf("unknown track %q (want stills or video)", value)
	}
}

// Status is a track lifecycle state. Each track accepts a closed subset.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusReadyForPrompt Status = "READY_FOR_PROMPT"
	StatusPromptReady    Status = "PROMPT_READY"
	StatusApproved       Status = "APPROVED"
	StatusImageReady     Status = "IMAGE_READY"
	StatusVideoReady     Status = "VIDEO_READY"
	StatusRejected       Status = "REJECTED"
	StatusDone           Status = "DONE"
)

var stillsStatuses = []Status{
	StatusPending,
	StatusPromptReady,
	StatusApproved,
	StatusImageReady,
	StatusRejected,
	StatusDone,
}

var videoStatuses = []Status{
	StatusPending,
	StatusReadyForPrompt,
	StatusPromptReady,
	StatusApproved,
	StatusVideoReady,
	StatusRejected,
	StatusDone,
}

// Statuses lists the states valid for the track in lifecycle order.
func (t Track) Statuses() []Status {
	if t == TrackVideo {
		return append([]Status(nil), videoStatuses...)
	}
	return append([]Status(nil), stillsStatuses...)
}

// Valid reports whether status belongs to the track's closed set.
func (t Track) Valid(status Status) bool {
	set := stillsStatuses
	if t == TrackVideo {
		set = videoStatuses
	}
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// AssetKey is the JSON key holding the generated asset path.
func (t Track) AssetKey() string {
	if t == TrackVideo {
		return "video_path"
	}
	return "image_path"
}

// ReadyStatus is the state a track enters when its asset has been generated.
func (t Track) ReadyStatus() Status {
	if t == TrackVideo {
		return StatusVideoReady
	}
	return StatusImageReady
}

// Brief is the human-authored description of a shot.
type Brief struct {
	Visual string
	Motion string

	raw rawObject
}

// TrackState is the per-track portion of a shot record.
type TrackState struct {
	Status            Status
	PromptFile        string
	AssetPath         string
	Version           int
	InspectorFeedback string
	ReviewNotes       string
	UpdatedAt         string

	raw rawObject
}

// HasAsset reports whether an asset path is recorded.
func (s TrackState) HasAsset() bool {
	return strings.TrimSpace(s.AssetPath) != ""
}

// Shot is one entry of the board, keyed by ID.
type Shot struct {
	ID       string
	SceneRef string
	Duration string
	Brief    Brief
	// Constraints is passed through verbatim; see Constraint pairs for reading.
	Constraints []byte
	Stills      TrackState
	Video       TrackState

	raw rawObject
}

// NewShot returns a shot with both tracks PENDING.
func NewShot(id string) *Shot {
	return &Shot{
		ID:     id,
		Stills: TrackState{Status: StatusPending},
		Video:  TrackState{Status: StatusPending},
	}
}

// Track returns a pointer to the state for t.
func (s *Shot) Track(t Track) *TrackState {
	if t == TrackVideo {
		return &s.Video
	}
	return &s.Stills
}

// Clone returns a deep copy safe to hand to a worker goroutine.
func (s *Shot) Clone() *Shot {
	if s == nil {
		return nil
	}
	out := *s
	out.Constraints = append([]byte(nil), s.Constraints...)
	out.raw = s.raw.clone()
	out.Brief.raw = s.Brief.raw.clone()
	out.Stills.raw = s.Stills.raw.clone()
	out.Video.raw = s.Video.raw.clone()
	return &out
}

// Constraint is one named technical constraint rendered as text.
type Constraint struct {
	Name  string
	Value string
}

// ConstraintPairs returns constraints in document order with scalar values
// rendered as plain text.
func (s *Shot) ConstraintPairs() ([]Constraint, error) {
	if len(s.Constraints) == 0 {
		return nil, nil
	}
	obj, err := decodeObject(s.Constraints)
	if err != nil {
		return nil, fmt.Errorf("constraints: %w", err)
	}
	pairs := make([]Constraint, 0, len(obj.keys))
	for _, key := range obj.keys {
		pairs = append(pairs, Constraint{Name: key, Value: scalarText(obj.values[key])})
	}
	return pairs, nil
}

// IDForNumber renders the canonical shot identifier for a 1-based index.
func IDForNumber(n int) string {
	return fmt.Sprintf("SHOT_%03d", n)
}
