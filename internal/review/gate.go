package review

import (
	"fmt"
	"strings"
	"time"

	"shotline/internal/services"
	"shotline/internal/shots"
)

// Approve accepts the generated asset of each shot on track. Every id must be
// awaiting review; nothing is changed when any id fails validation.
//
// Stills go IMAGE_READY -> APPROVED and a PENDING video track becomes
// READY_FOR_PROMPT. Videos go VIDEO_READY -> DONE and the still is marked DONE.
func Approve(board *shots.Board, ids []string, track shots.Track, notes string, now time.Time) error {
	targets, err := reviewable(board, ids, track, "approve")
	if err != nil {
		return err
	}
	stamp := shots.Timestamp(now)
	notes = strings.TrimSpace(notes)
	for _, shot := range targets {
		state := shot.Track(track)
		if track == shots.TrackVideo {
			state.Status = shots.StatusDone
			shot.Stills.Status = shots.StatusDone
			shot.Stills.UpdatedAt = stamp
		} else {
			state.Status = shots.StatusApproved
			if shot.Video.Status == shots.StatusPending {
				shot.Video.Status = shots.StatusReadyForPrompt
				shot.Video.UpdatedAt = stamp
			}
		}
		if notes != "" {
			state.ReviewNotes = notes
		}
		state.UpdatedAt = stamp
	}
	return nil
}

// Reject marks each asset as rejected and records notes as feedback for the
// next prompt pass.
func Reject(board *shots.Board, ids []string, track shots.Track, notes string, now time.Time) error {
	targets, err := reviewable(board, ids, track, "reject")
	if err != nil {
		return err
	}
	stamp := shots.Timestamp(now)
	notes = strings.TrimSpace(notes)
	for _, shot := range targets {
		state := shot.Track(track)
		state.Status = shots.StatusRejected
		state.InspectorFeedback = notes
		state.ReviewNotes = notes
		state.UpdatedAt = stamp
	}
	return nil
}

func reviewable(board *shots.Board, ids []string, track shots.Track, op string) ([]*shots.Shot, error) {
	if len(ids) == 0 {
		return nil, services.Wrap(services.ErrValidation, "review", op, "no shot ids given", nil)
	}
	ready := track.ReadyStatus()
	targets := make([]*shots.Shot, 0, len(ids))
	for _, id := range ids {
		shot, ok := board.Get(id)
		if !ok {
			return nil, services.Wrap(services.ErrMissingInput, "review", op, fmt.Sprintf("shot %s not found", id), nil)
		}
		if status := shot.Track(track).Status; status != ready {
			return nil, services.Wrap(services.ErrValidation, "review", op,
				fmt.Sprintf("%s %s is %s, want %s", id, track, status, ready), nil)
		}
		targets = append(targets, shot)
	}
	return targets, nil
}

// Pending lists the shots whose track asset awaits review, in board order.
func Pending(board *shots.Board, track shots.Track) []*shots.Shot {
	ready := track.ReadyStatus()
	var out []*shots.Shot
	for _, shot := range board.Shots() {
		if shot.Track(track).Status == ready {
			out = append(out, shot)
		}
	}
	return out
}

// Rejected lists the shots whose track was rejected, in board order.
func Rejected(board *shots.Board, track shots.Track) []*shots.Shot {
	var out []*shots.Shot
	for _, shot := range board.Shots() {
		if shot.Track(track).Status == shots.StatusRejected {
			out = append(out, shot)
		}
	}
	return out
}
