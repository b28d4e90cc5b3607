package model

import "time"

// Tile is one grid cell's query center. Row/Col index the cell within its
// grid for log readability; they are not persisted.
type Tile struct {
	Lat  float64
	Lon  float64
	Zoom int
	Row  int
	Col  int
}

// Region describes the area a grid is generated for.
type Region struct {
	CenterLat float64
	CenterLon float64
	RadiusKm  float64
	SpacingKm float64
	Zoom      int
}

// Record is one harvested business. Only Name and RawSnippet are guaranteed;
// everything else is best-effort enrichment.
type Record struct {
	Name         string `json:"name"`
	Category     string `json:"category,omitempty"`
	Address      string `json:"address,omitempty"`
	Website      string `json:"website,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	LocationLink string `json:"location_link,omitempty"`
	RawSnippet   string `json:"raw_snippet"`
}

// HarvestConfig holds one job's submission parameters.
type HarvestConfig struct {
	SearchQuery  string  `json:"search_query" yaml:"search_query"`
	Location     string  `json:"location" yaml:"location"`
	Total        int     `json:"total" yaml:"total"`
	GridRadiusKm float64 `json:"grid_radius_km" yaml:"grid_radius_km"`
	ZoomLevel    int     `json:"zoom_level" yaml:"zoom_level"`
}

// ClampZoom bounds the configured zoom to the levels the map surface accepts.
func (c *HarvestConfig) ClampZoom() {
	if c.ZoomLevel < 1 {
		c.ZoomLevel = 15
	}
	if c.ZoomLevel > 21 {
		c.ZoomLevel = 21
	}
}

// Status is a job's lifecycle state. Stopped, Completed and Error are
// terminal; Stopping is only reachable from Running.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusStopping  Status = "stopping"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusCompleted || s == StatusError
}

// CanTransition reports whether s -> next is a legal lifecycle move.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusError
	case StatusRunning:
		return next == StatusStopping || next == StatusCompleted || next == StatusError
	case StatusStopping:
		return next == StatusStopped || next == StatusCompleted || next == StatusError
	default:
		return false
	}
}

// Job is the externally observable state of one harvest run.
type Job struct {
	ID           string        `json:"id"`
	Config       HarvestConfig `json:"config"`
	Status       Status        `json:"status"`
	ResultsCount int           `json:"results_count"`
	Logs         []string      `json:"logs"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
