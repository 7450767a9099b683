package shots

import (
	"fmt"

	"shotline/internal/fileutil"
)

// StatusCount is one row of a track summary.
type StatusCount struct {
	Status Status
	Count  int
}

// Summary tallies track statuses across the board.
type Summary struct {
	Total  int
	Stills []StatusCount
	Video  []StatusCount
}

// Summarize counts every status of both tracks, in lifecycle order.
func Summarize(board *Board) Summary {
	summary := Summary{Total: board.Len()}
	for _, track := range []Track{TrackStills, TrackVideo} {
		counts := make(map[Status]int)
		for _, shot := range board.Shots() {
			counts[shot.Track(track).Status]++
		}
		rows := make([]StatusCount, 0, len(counts))
		for _, status := range track.Statuses() {
			rows = append(rows, StatusCount{Status: status, Count: counts[status]})
		}
		if track == TrackVideo {
			summary.Video = rows
		} else {
			summary.Stills = rows
		}
	}
	return summary
}

// Count returns the tally for one track/status pair.
func (s Summary) Count(track Track, status Status) int {
	rows := s.Stills
	if track == TrackVideo {
		rows = s.Video
	}
	for _, row := range rows {
		if row.Status == status {
			return row.Count
		}
	}
	return 0
}

// Issue is one invariant violation found by Audit.
type Issue struct {
	ShotID  string
	Track   Track
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s", i.ShotID, i.Track, i.Message)
}

// Audit reports shots whose recorded state contradicts itself: asset paths
// that disagree with status, assets missing on disk, and video work ahead of
// an unapproved still.
func Audit(board *Board, projectDir string) []Issue {
	var issues []Issue
	for _, shot := range board.Shots() {
		for _, track := range []Track{TrackStills, TrackVideo} {
			state := shot.Track(track)
			switch state.Status {
			case track.ReadyStatus(), StatusDone:
				if !state.HasAsset() {
					issues = append(issues, Issue{shot.ID, track, fmt.Sprintf("status %s without %s", state.Status, track.AssetKey())})
					continue
				}
			case StatusPending, StatusReadyForPrompt, StatusPromptReady:
				if state.HasAsset() {
					issues = append(issues, Issue{shot.ID, track, fmt.Sprintf("status %s but %s is set", state.Status, track.AssetKey())})
				}
			}
			if state.HasAsset() && !fileutil.Exists(ResolvePath(projectDir, state.AssetPath)) {
				issues = append(issues, Issue{shot.ID, track, "asset file missing: " + state.AssetPath})
			}
		}
		if shot.Video.Status != StatusPending && shot.Video.Status != StatusReadyForPrompt && !StillsReadyForVideo(shot) {
			issues = append(issues, Issue{shot.ID, TrackVideo, fmt.Sprintf("video is %s while stills is %s", shot.Video.Status, shot.Stills.Status)})
		}
	}
	return issues
}

// StillsReadyForVideo reports whether the still has been approved as the
// source frame for video work.
func StillsReadyForVideo(shot *Shot) bool {
	switch shot.Stills.Status {
	case StatusApproved, StatusDone:
		return shot.Stills.HasAsset()
	}
	return false
}
