package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Track describes one track of a shot.
type Track struct {
	Status            string `json:"status"`
	PromptFile        string `json:"promptFile,omitempty"`
	AssetPath         string `json:"assetPath,omitempty"`
	Version           int    `json:"version"`
	InspectorFeedback string `json:"inspectorFeedback,omitempty"`
	ReviewNotes       string `json:"reviewNotes,omitempty"`
	UpdatedAt         string `json:"updatedAt,omitempty"`
}

// Shot describes a board entry in a transport-friendly format.
type Shot struct {
	ID       string `json:"id"`
	SceneRef string `json:"sceneRef"`
	Duration string `json:"duration,omitempty"`
	Visual   string `json:"visual"`
	Motion   string `json:"motion,omitempty"`
	Stills   Track  `json:"stills"`
	Video    Track  `json:"video"`
}

// ShotListResponse wraps a collection of shots.
type ShotListResponse struct {
	Shots []Shot `json:"shots"`
}

// BoardStatus summarizes the board file.
type BoardStatus struct {
	Path   string         `json:"path"`
	Loaded bool           `json:"loaded"`
	Error  string         `json:"error,omitempty"`
	Total  int            `json:"total"`
	Stills map[string]int `json:"stills"`
	Video  map[string]int `json:"video"`
	Issues []string       `json:"issues,omitempty"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// StatusResponse aggregates board and stage readiness.
type StatusResponse struct {
	Board         BoardStatus    `json:"board"`
	PendingReview map[string]int `json:"pendingReview"`
	Stages        []StageHealth  `json:"stages"`
	LastBatch     *BatchSummary  `json:"lastBatch,omitempty"`
}

// RunRequest starts a stage batch.
type RunRequest struct {
	Range          string `json:"range,omitempty"`
	Force          bool   `json:"force,omitempty"`
	Clean          bool   `json:"clean,omitempty"`
	Workers        int    `json:"workers,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

// ShotResult is one shot's verdict in a batch.
type ShotResult struct {
	ShotID     string `json:"shotId"`
	Result     string `json:"result"`
	Kind       string `json:"kind,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Detail     string `json:"detail,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// BatchSummary describes a batch run.
type BatchSummary struct {
	ID         string         `json:"id"`
	Stage      string         `json:"stage"`
	Filter     string         `json:"filter"`
	StartedAt  string         `json:"startedAt,omitempty"`
	FinishedAt string         `json:"finishedAt,omitempty"`
	DurationMs int64          `json:"durationMs"`
	Selected   int            `json:"selected"`
	Counts     map[string]int `json:"counts"`
	Saved      bool           `json:"saved"`
	Missing    []string       `json:"missing,omitempty"`
	Results    []ShotResult   `json:"results,omitempty"`
}

// HistoryResponse lists recorded batches, newest first.
type HistoryResponse struct {
	Batches []BatchSummary `json:"batches"`
}

// ReviewRequest records a human decision on a generated asset.
type ReviewRequest struct {
	Track    string `json:"track"`
	Decision string `json:"decision"`
	Notes    string `json:"notes,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
