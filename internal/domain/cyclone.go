package domain

import "time"

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`
}

// CycloneRecord is a snapshot of one active storm at poll time.
type CycloneRecord struct {
	ATCFID         string `json:"atcfIdentifier"`
	SeasonalID     string `json:"seasonalIdentifier"`
	UpdateToken    string `json:"updateToken"`
	Classification string `json:"classification"`
	Name           string `json:"name"`
	Wind           string `json:"sustainedWindDescription"`
	Category       int    `json:"derivedCategory"`

	AdvisoryPublishedAt *time.Time `json:"advisoryPublishedAt,omitempty"`

	Basin    string `json:"basin,omitempty"`
	Center   Geo    `json:"center,omitempty"`
	Movement string `json:"movement,omitempty"`
	Pressure string `json:"pressure,omitempty"`
	Headline string `json:"headline,omitempty"`

	// Place is the reverse-geocoded place nearest the storm centre.
	Place string `json:"place,omitempty"`
}

// RunState is everything one run needs from the previous one.
type RunState struct {
	Cyclones            []CycloneRecord `json:"cyclones"`
	TrackedIdentifiers  []string        `json:"trackedIdentifiers"`
	BroadcastMessageIDs []string        `json:"broadcastMessageIds"`
	DigestMessageID     string          `json:"digestMessageId"`
	DigestNextDueAt     time.Time       `json:"digestNextDueAt"`
}

// NewRunState returns the first-run state. Slices are empty rather than nil so
// the persisted document reads [] instead of null.
func NewRunState() RunState {
	return RunState{
		Cyclones:            []CycloneRecord{},
		TrackedIdentifiers:  []string{},
		BroadcastMessageIDs: []string{},
	}
}

// Normalize replaces nil slices with empty ones, e.g. after decoding a
// document written by an older version that omitted a field.
func (s RunState) Normalize() RunState {
	if s.Cyclones == nil {
		s.Cyclones = []CycloneRecord{}
	}
	if s.TrackedIdentifiers == nil {
		s.TrackedIdentifiers = []string{}
	}
	if s.BroadcastMessageIDs == nil {
		s.BroadcastMessageIDs = []string{}
	}
	return s
}

// ChatMessage is a message read back from the chat platform.
type ChatMessage struct {
	ID        string
	AuthorID  string
	AuthorBot bool
	Content   string
	Timestamp time.Time
}

// Cyclone event types published to the event sink.
const (
	EventUpdated    = "updated"
	EventDissipated = "dissipated"
)

// CycloneEvent is the message published downstream when a storm changes or
// disappears from the feed. Cyclone is nil for dissipation events.
type CycloneEvent struct {
	Type       string         `json:"type"`
	ATCFID     string         `json:"atcf_id"`
	Cyclone    *CycloneRecord `json:"cyclone,omitempty"`
	ObservedAt time.Time      `json:"observed_at"`
}
