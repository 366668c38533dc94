package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/boiler-vision/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Boiler        BoilerJSON    `json:"boiler"`
	Ready         bool          `json:"ready"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"cycle_counts"`
	LastError     *ErrorJSON    `json:"last_error,omitempty"`
	History       []HistoryJSON `json:"history,omitempty"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Config        ConfigJSON    `json:"config"`
}

// BoilerJSON is the latest resolved state.
type BoilerJSON struct {
	Percentage    int      `json:"percentage"`
	Heating       bool     `json:"heating"`
	BlinkingLight *int     `json:"blinking_light,omitempty"`
	Ambiguous     bool     `json:"ambiguous"`
	Lights        []string `json:"lights"`
	RoomLight     bool     `json:"room_light"`
	ButtonPressed bool     `json:"button_pressed"`
	LastCycle     string   `json:"last_cycle,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of cycle counts.
type CountsJSON struct {
	Cycles    int `json:"cycles"`
	Failed    int `json:"failed"`
	Ambiguous int `json:"ambiguous"`
	Skipped   int `json:"skipped"`
}

// ErrorJSON is the most recent cycle error.
type ErrorJSON struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// HistoryJSON is one history entry.
type HistoryJSON struct {
	Timestamp  string `json:"timestamp"`
	Percentage int    `json:"percentage"`
	Heating    bool   `json:"heating"`
	RoomLight  bool   `json:"room_light"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	IntervalMs       int64  `json:"interval_ms"`
	Samples          int    `json:"samples"`
	SampleIntervalMs int64  `json:"sample_interval_ms"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	Broker           string `json:"broker"`
	HTTPAddr         string `json:"http_addr"`
	CameraIndex      int    `json:"camera_index"`
	ErrorImageDir    string `json:"error_image_dir"`
}

// LightLabels returns the per-light determinations, OFF when unset.
func LightLabels(state logic.BoilerState) []string {
	out := make([]string, 0, logic.NumLights)
	for _, d := range state.Lights {
		if d == "" {
			d = logic.LightOff
		}
		out = append(out, string(d))
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	boiler := BoilerJSON{
		Percentage:    snap.State.Percentage,
		Heating:       snap.State.Heating,
		Ambiguous:     snap.State.Ambiguous,
		Lights:        LightLabels(snap.State),
		RoomLight:     snap.RoomLight,
		ButtonPressed: snap.ButtonPressed,
	}
	if snap.State.Heating && !snap.State.Ambiguous && snap.State.BlinkingLight >= 0 {
		n := snap.State.BlinkingLight
		boiler.BlinkingLight = &n
	}
	if !snap.LastCycle.IsZero() {
		boiler.LastCycle = snap.LastCycle.UTC().Format(time.RFC3339)
	}

	inner := StatusInner{
		Boiler:        boiler,
		Ready:         snap.HasState,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Cycles:    snap.Counts.Cycles,
			Failed:    snap.Counts.Failed,
			Ambiguous: snap.Counts.Ambiguous,
			Skipped:   snap.Counts.Skipped,
		},
		Config: ConfigJSON{
			IntervalMs:       snap.Config.IntervalMs,
			Samples:          snap.Config.Samples,
			SampleIntervalMs: snap.Config.SampleIntervalMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
			CameraIndex:      snap.Config.CameraIndex,
			ErrorImageDir:    snap.Config.ErrorImageDir,
		},
	}
	if snap.LastError != "" {
		inner.LastError = &ErrorJSON{
			Message:   snap.LastError,
			Timestamp: snap.LastErrorAt.UTC().Format(time.RFC3339),
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint, including the
// state history (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	for _, h := range snap.History {
		inner.History = append(inner.History, HistoryJSON{
			Timestamp:  h.At.UTC().Format(time.RFC3339),
			Percentage: h.Percentage,
			Heating:    h.Heating,
			RoomLight:  h.RoomLight,
		})
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
// History is left out to keep the payload small.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
