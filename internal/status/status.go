// Package status provides a thread-safe status tracker for the boiler-vision daemon.
// It is read by HTTP handlers and the system event publisher.
package status

import (
	"slices"
	"sync"
	"time"

	"github.com/sweeney/boiler-vision/internal/logic"
)

// MaxHistory is the number of distinct states kept.
const MaxHistory = 50

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	IntervalMs       int64
	Samples          int
	SampleIntervalMs int64
	HeartbeatMs      int64
	Broker           string
	HTTPAddr         string
	CameraIndex      int
	ErrorImageDir    string
}

// Counts tallies detection cycles by outcome.
type Counts struct {
	Cycles    int
	Failed    int
	Ambiguous int
	Skipped   int
}

// HistoryEntry is a resolved state and when it was first seen.
type HistoryEntry struct {
	At         time.Time
	Percentage int
	Heating    bool
	RoomLight  bool
}

func (h HistoryEntry) sameState(o HistoryEntry) bool {
	return h.Percentage == o.Percentage && h.Heating == o.Heating && h.RoomLight == o.RoomLight
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.BoilerState
	HasState      bool
	RoomLight     bool
	ButtonPressed bool
	LastCycle     time.Time

	LastError   string
	LastErrorAt time.Time

	Counts  Counts
	History []HistoryEntry // newest first

	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot

	frame   []byte
	frameAt time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// RecordResult stores a resolved cycle. The history only grows when the
// state differs from the newest entry.
func (t *Tracker) RecordResult(at time.Time, state logic.BoilerState, roomLight, buttonPressed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.snap
	s.State = state
	s.HasState = true
	s.RoomLight = roomLight
	s.ButtonPressed = buttonPressed
	s.LastCycle = at
	s.Counts.Cycles++
	if state.Ambiguous {
		s.Counts.Ambiguous++
	}

	entry := HistoryEntry{At: at, Percentage: state.Percentage, Heating: state.Heating, RoomLight: roomLight}
	if len(s.History) > 0 && s.History[0].sameState(entry) {
		return
	}
	// Fresh slice so snapshots handed out earlier stay untouched.
	h := make([]HistoryEntry, 0, min(len(s.History)+1, MaxHistory))
	h = append(h, entry)
	h = append(h, s.History[:min(len(s.History), MaxHistory-1)]...)
	s.History = h
}

// RecordFailure stores a cycle that produced no state.
func (t *Tracker) RecordFailure(at time.Time, err error) {
	t.mu.Lock()
	t.snap.Counts.Cycles++
	t.snap.Counts.Failed++
	t.snap.LastCycle = at
	if err != nil {
		t.snap.LastError = err.Error()
		t.snap.LastErrorAt = at
	}
	t.mu.Unlock()
}

// RecordAmbiguity notes the error of an ambiguous cycle. The state itself
// is recorded by RecordResult.
func (t *Tracker) RecordAmbiguity(at time.Time, err error) {
	t.mu.Lock()
	t.snap.LastError = err.Error()
	t.snap.LastErrorAt = at
	t.mu.Unlock()
}

// RecordSkipped counts a cycle skipped while MQTT was disconnected.
func (t *Tracker) RecordSkipped() {
	t.mu.Lock()
	t.snap.Counts.Skipped++
	t.mu.Unlock()
}

// SetFrame stores the JPEG of the last reference frame.
func (t *Tracker) SetFrame(jpeg []byte, at time.Time) {
	t.mu.Lock()
	t.frame = jpeg
	t.frameAt = at
	t.mu.Unlock()
}

// Frame returns the last reference frame, or nil if none was captured yet.
// The returned slice must not be modified.
func (t *Tracker) Frame() ([]byte, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frame, t.frameAt
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.History = slices.Clone(t.snap.History)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
