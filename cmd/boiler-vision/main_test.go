package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/boiler-vision/internal/camera"
	"github.com/sweeney/boiler-vision/internal/gpio"
	"github.com/sweeney/boiler-vision/internal/logging"
	"github.com/sweeney/boiler-vision/internal/logic"
	"github.com/sweeney/boiler-vision/internal/metrics"
	"github.com/sweeney/boiler-vision/internal/monitor"
	"github.com/sweeney/boiler-vision/internal/mqtt"
	"github.com/sweeney/boiler-vision/internal/status"
	"github.com/sweeney/boiler-vision/internal/vision"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}
	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want %q", info.Status, "connected")
	}
	if info.IP != "" {
		t.Errorf("IP: got %q, want empty", info.IP)
	}
}

// --- runLoop tests ---

var testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

type outcome struct {
	res monitor.Result
	err error
}

// fakeMonitor returns scripted cycle outcomes, repeating the last one.
type fakeMonitor struct {
	outcomes []outcome
	calls    int
}

func (f *fakeMonitor) RunCycle(ctx context.Context) (monitor.Result, error) {
	i := min(f.calls, len(f.outcomes)-1)
	f.calls++
	o := f.outcomes[i]
	if o.res.CycleID == "" {
		o.res.CycleID = fmt.Sprintf("cycle-%d", f.calls)
	}
	return o.res, o.err
}

// scriptedConn returns scripted connection states, repeating the last one.
type scriptedConn struct {
	states []bool
	calls  int
}

func (c *scriptedConn) IsConnected() bool {
	i := min(c.calls, len(c.states)-1)
	c.calls++
	return c.states[i]
}

type captureCall struct {
	cycleID string
	reason  string
	frames  int
}

type recordingSink struct {
	calls []captureCall
}

func (s *recordingSink) Capture(cycleID, reason string, frames []camera.Frame) ([]string, error) {
	s.calls = append(s.calls, captureCall{cycleID, reason, len(frames)})
	paths := make([]string, len(frames))
	for i := range frames {
		paths[i] = fmt.Sprintf("error-%s-%02d.jpg", cycleID, i)
	}
	return paths, nil
}

func testFrame() camera.Frame {
	return camera.Frame{Image: image.NewRGBA(image.Rect(0, 0, 8, 8)), Captured: testStart}
}

func lights(d ...logic.Determination) [logic.NumLights]logic.Determination {
	var out [logic.NumLights]logic.Determination
	copy(out[:], d)
	return out
}

func okOutcome() outcome {
	return outcome{res: monitor.Result{
		Ambient: vision.AmbientCondition{RoomLight: true},
		State: logic.BoilerState{
			Percentage:    50,
			Heating:       true,
			BlinkingLight: 2,
			Lights:        lights(logic.LightSteadyOn, logic.LightSteadyOn, logic.LightBlinking, logic.LightOff),
		},
		Reference: testFrame(),
		Frames:    []camera.Frame{testFrame()},
		Duration:  6 * time.Second,
	}}
}

func ambiguousOutcome() outcome {
	return outcome{
		res: monitor.Result{
			State: logic.BoilerState{
				Percentage:    25,
				Heating:       true,
				BlinkingLight: -1,
				Ambiguous:     true,
				Lights:        lights(logic.LightSteadyOn, logic.LightBlinking, logic.LightOff, logic.LightBlinking),
			},
			Reference: testFrame(),
			Frames:    []camera.Frame{testFrame(), testFrame()},
		},
		err: fmt.Errorf("%w: lights [1 3]", logic.ErrAmbiguousBlinkState),
	}
}

func captureFailure() outcome {
	return outcome{err: fmt.Errorf("sample 12 of 30: %w: read failed", camera.ErrCaptureUnavailable)}
}

type harness struct {
	d       *deps
	mon     *fakeMonitor
	pub     *mqtt.FakePublisher
	sink    *recordingSink
	led     *gpio.FakeIndicator
	tracker *status.Tracker
}

func newHarness(outcomes ...outcome) *harness {
	h := &harness{
		mon:     &fakeMonitor{outcomes: outcomes},
		pub:     mqtt.NewFakePublisher(),
		sink:    &recordingSink{},
		led:     gpio.NewFakeIndicator(),
		tracker: status.NewTracker(testStart, status.Config{}),
	}
	h.d = &deps{
		monitor:   h.mon,
		publisher: h.pub,
		conn:      h.pub,
		tracker:   h.tracker,
		metrics:   metrics.New(),
		sink:      h.sink,
		led:       h.led,
		now:       fakeClock(testStart, time.Second),
		log:       logging.Discard(),
	}
	return h
}

const (
	evTick  = "tick"
	evForce = "force"
)

// run drives runLoop through the given events and then the signal.
func (h *harness) run(t *testing.T, events []string, signal os.Signal) {
	t.Helper()
	tick := make(chan time.Time)
	force := make(chan struct{})
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(context.Background(), h.d, tick, force, sig)
	}()

	for _, ev := range events {
		switch ev {
		case evTick:
			tick <- time.Time{}
		case evForce:
			force <- struct{}{}
		}
	}
	sig <- signal

	if err := <-errCh; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
}

func ticks(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = evTick
	}
	return out
}

func TestRunLoopPublishesEveryCycle(t *testing.T) {
	h := newHarness(okOutcome())
	h.run(t, ticks(2), syscall.SIGTERM)

	// startup cycle + 2 ticks
	if h.mon.calls != 3 {
		t.Fatalf("expected 3 cycles, got %d", h.mon.calls)
	}
	if len(h.pub.States) != 3 {
		t.Fatalf("expected 3 state updates, got %d", len(h.pub.States))
	}
	u := h.pub.States[0]
	if u.State.Percentage != 50 || !u.State.Heating || !u.RoomLight {
		t.Errorf("unexpected update: %+v", u)
	}
	if u.CycleID != "cycle-1" {
		t.Errorf("CycleID: got %q, want cycle-1", u.CycleID)
	}
	if len(h.pub.Errors) != 0 {
		t.Errorf("expected no error publishes, got %v", h.pub.Errors)
	}
	if len(h.sink.calls) != 0 {
		t.Errorf("expected no diagnostics, got %v", h.sink.calls)
	}
	if h.led.On() {
		t.Error("LED should be off after successful cycles")
	}

	snap := h.tracker.Snapshot()
	if snap.Counts.Cycles != 3 || !snap.HasState {
		t.Errorf("tracker: cycles=%d hasState=%v", snap.Counts.Cycles, snap.HasState)
	}
	if len(snap.History) != 1 {
		t.Errorf("history should hold one distinct state, got %d", len(snap.History))
	}
	if jpeg, _ := h.tracker.Frame(); len(jpeg) == 0 {
		t.Error("expected reference frame stored")
	}

	if len(h.pub.SystemEvents) != 1 || h.pub.SystemEvents[0].Event != "SHUTDOWN" {
		t.Errorf("expected only SHUTDOWN system event, got %+v", h.pub.SystemEvents)
	}
}

func TestRunLoopCaptureFailure(t *testing.T) {
	h := newHarness(captureFailure(), okOutcome())
	h.run(t, ticks(1), syscall.SIGTERM)

	if len(h.pub.Errors) != 1 || !h.pub.Errors[0] {
		t.Fatalf("expected one error=ON publish, got %v", h.pub.Errors)
	}
	// The failed cycle publishes no state; the next one does.
	if len(h.pub.States) != 1 {
		t.Fatalf("expected 1 state update, got %d", len(h.pub.States))
	}
	if len(h.sink.calls) != 0 {
		t.Errorf("capture failure has no frames to dump, got %v", h.sink.calls)
	}
	wantLED := []bool{true, false}
	if fmt.Sprint(h.led.Values) != fmt.Sprint(wantLED) {
		t.Errorf("LED: got %v, want %v", h.led.Values, wantLED)
	}

	snap := h.tracker.Snapshot()
	if snap.Counts.Failed != 1 || snap.Counts.Cycles != 2 {
		t.Errorf("counts: %+v", snap.Counts)
	}
	if !strings.Contains(snap.LastError, "capture unavailable") {
		t.Errorf("LastError: got %q", snap.LastError)
	}
}

func TestRunLoopAmbiguousCycle(t *testing.T) {
	h := newHarness(ambiguousOutcome())
	h.run(t, nil, syscall.SIGTERM)

	if len(h.pub.States) != 1 {
		t.Fatalf("ambiguous state should still be published, got %d", len(h.pub.States))
	}
	if !h.pub.States[0].State.Ambiguous {
		t.Error("expected Ambiguous=true")
	}
	var errorPayload string
	for _, m := range h.pub.Messages {
		if m.Topic == mqtt.TopicError {
			errorPayload = string(m.Payload)
		}
	}
	if errorPayload != mqtt.PayloadOn {
		t.Errorf("error entity: got %q, want ON", errorPayload)
	}

	if len(h.sink.calls) != 1 {
		t.Fatalf("expected 1 diagnostic capture, got %d", len(h.sink.calls))
	}
	c := h.sink.calls[0]
	if c.reason != "ambiguous" || c.frames != 3 || c.cycleID != "cycle-1" {
		t.Errorf("capture: %+v", c)
	}
	if !h.led.On() {
		t.Error("LED should be on after ambiguous cycle")
	}

	snap := h.tracker.Snapshot()
	if snap.Counts.Ambiguous != 1 || snap.Counts.Failed != 0 {
		t.Errorf("counts: %+v", snap.Counts)
	}
	if !strings.Contains(snap.LastError, "ambiguous") {
		t.Errorf("LastError: got %q", snap.LastError)
	}
}

func TestRunLoopRegionErrorDumpsFrame(t *testing.T) {
	h := newHarness(outcome{
		res: monitor.Result{Reference: testFrame(), Frames: []camera.Frame{testFrame()}},
		err: fmt.Errorf("sample 1 of 30: %w", vision.ErrRegionOutOfFrame),
	})
	h.run(t, nil, syscall.SIGTERM)

	if len(h.pub.States) != 0 {
		t.Errorf("expected no state, got %d", len(h.pub.States))
	}
	if len(h.pub.Errors) != 1 {
		t.Errorf("expected error publish, got %v", h.pub.Errors)
	}
	if len(h.sink.calls) != 1 || h.sink.calls[0].reason != "failed" || h.sink.calls[0].frames != 1 {
		t.Errorf("capture: %+v", h.sink.calls)
	}
}

func TestRunLoopAmbientRegionErrorDumpsReference(t *testing.T) {
	h := newHarness(outcome{
		res: monitor.Result{Reference: testFrame()},
		err: fmt.Errorf("ambient detection: %w", vision.ErrRegionOutOfFrame),
	})
	h.run(t, nil, syscall.SIGTERM)

	if len(h.sink.calls) != 1 || h.sink.calls[0].reason != "failed" || h.sink.calls[0].frames != 1 {
		t.Errorf("capture: %+v", h.sink.calls)
	}
	if len(h.pub.Errors) != 1 {
		t.Errorf("expected error publish, got %v", h.pub.Errors)
	}
}

func TestRunLoopCaptureFailureDumpsNothing(t *testing.T) {
	o := captureFailure()
	o.res.Reference = testFrame()
	h := newHarness(o)
	h.run(t, nil, syscall.SIGTERM)

	if len(h.sink.calls) != 0 {
		t.Errorf("expected no capture after camera failure, got %+v", h.sink.calls)
	}
}

func TestRunLoopCancelledCycleRecordsNothing(t *testing.T) {
	h := newHarness(outcome{err: context.Canceled})
	h.run(t, nil, syscall.SIGTERM)

	if len(h.pub.States) != 0 || len(h.pub.Errors) != 0 {
		t.Errorf("expected no publishes, got states=%d errors=%v", len(h.pub.States), h.pub.Errors)
	}
	if snap := h.tracker.Snapshot(); snap.Counts.Cycles != 0 {
		t.Errorf("cycles: got %d, want 0", snap.Counts.Cycles)
	}
}

func TestRunLoopSkipsWhileDisconnected(t *testing.T) {
	h := newHarness(okOutcome())
	h.d.conn = &scriptedConn{states: []bool{false}}
	h.run(t, ticks(2), syscall.SIGTERM)

	if h.mon.calls != 0 {
		t.Errorf("expected no cycles while disconnected, got %d", h.mon.calls)
	}
	snap := h.tracker.Snapshot()
	if snap.Counts.Skipped != 3 {
		t.Errorf("Skipped: got %d, want 3", snap.Counts.Skipped)
	}
	if snap.MQTTConnected {
		t.Error("tracker should report MQTT disconnected")
	}
	// SHUTDOWN is still attempted; the publisher buffers it.
	if len(h.pub.SystemEvents) != 1 {
		t.Errorf("expected SHUTDOWN event, got %d", len(h.pub.SystemEvents))
	}
}

func TestRunLoopForceCheck(t *testing.T) {
	h := newHarness(okOutcome())
	h.run(t, []string{evTick, evForce, evTick}, syscall.SIGTERM)

	if h.mon.calls != 4 {
		t.Fatalf("expected 4 cycles, got %d", h.mon.calls)
	}
	if len(h.pub.ForceChecks) != 1 {
		t.Fatalf("expected 1 force check publish, got %d", len(h.pub.ForceChecks))
	}

	// The force check timestamp follows the forced cycle's state.
	topics := h.pub.Topics()
	idx := -1
	for i, tp := range topics {
		if tp == mqtt.TopicLastForceCheck {
			idx = i
		}
	}
	const perCycle = 5 // heating, room light, percentage, error, state document
	if idx != 3*perCycle {
		t.Errorf("force check at message %d, want %d (after third cycle); topics=%v", idx, 3*perCycle, topics)
	}
}

func TestRunLoopForceCheckWaitsForPublishedCycle(t *testing.T) {
	h := newHarness(okOutcome())
	// startup skipped, forced cycle skipped, tick runs
	h.d.conn = &scriptedConn{states: []bool{false, false, true}}
	h.run(t, []string{evForce, evTick}, syscall.SIGTERM)

	if h.mon.calls != 1 {
		t.Fatalf("expected 1 cycle, got %d", h.mon.calls)
	}
	if len(h.pub.ForceChecks) != 1 {
		t.Errorf("pending force check should be published after the next cycle, got %d", len(h.pub.ForceChecks))
	}
}

func TestRunLoopForceCheckNotPublishedOnFailure(t *testing.T) {
	h := newHarness(okOutcome(), captureFailure())
	h.run(t, []string{evForce}, syscall.SIGTERM)

	if len(h.pub.ForceChecks) != 0 {
		t.Errorf("expected no force check after failed cycle, got %d", len(h.pub.ForceChecks))
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	// Clock calls: t0 heartbeat start, then per cycle one for the result
	// and one for the heartbeat check. With a 5-min step the check after
	// the first tick lands on 20m, past the 15m interval.
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "192.168.1.42")

	h := newHarness(okOutcome())
	h.d.now = fakeClock(testStart, 5*time.Minute)
	h.d.heartbeat = 15 * time.Minute
	h.run(t, ticks(2), syscall.SIGTERM)

	var heartbeats []int
	for i, se := range h.pub.SystemEvents {
		if se.Event == "HEARTBEAT" {
			heartbeats = append(heartbeats, i)
		}
	}
	if len(heartbeats) != 1 {
		t.Fatalf("expected 1 HEARTBEAT event, got %d", len(heartbeats))
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(h.pub.SystemPayloads[heartbeats[0]], &sj); err != nil {
		t.Fatalf("decode heartbeat payload: %v", err)
	}
	if sj.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q", sj.Status.Event)
	}
	if sj.Status.Counts.Cycles != 2 {
		t.Errorf("cycles at heartbeat: got %d, want 2", sj.Status.Counts.Cycles)
	}
	if sj.Status.Network == nil || sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network: got %+v", sj.Status.Network)
	}
}

func TestRunLoopPublishError(t *testing.T) {
	h := newHarness(okOutcome())
	h.pub.PublishErr = errors.New("broker unavailable")
	h.run(t, ticks(1), syscall.SIGTERM)

	if h.mon.calls != 2 {
		t.Errorf("loop should keep running after publish errors, got %d cycles", h.mon.calls)
	}
	if snap := h.tracker.Snapshot(); snap.Counts.Cycles != 2 {
		t.Errorf("tracker cycles: got %d, want 2", snap.Counts.Cycles)
	}
	if len(h.pub.SystemEvents) != 1 {
		t.Error("expected SHUTDOWN system event despite publish errors")
	}
}

func TestRunLoopShutdown(t *testing.T) {
	tests := []struct {
		signal os.Signal
		reason string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			h := newHarness(okOutcome())
			h.run(t, nil, tt.signal)

			if len(h.pub.SystemEvents) != 1 {
				t.Fatalf("expected 1 system event, got %d", len(h.pub.SystemEvents))
			}
			se := h.pub.SystemEvents[0]
			if se.Event != "SHUTDOWN" {
				t.Errorf("expected SHUTDOWN, got %q", se.Event)
			}
			if se.Reason != tt.reason {
				t.Errorf("expected reason %s, got %q", tt.reason, se.Reason)
			}
			if !se.Retained {
				t.Error("expected Retained=true for SHUTDOWN")
			}

			var sj status.StatusJSON
			if err := json.Unmarshal(h.pub.SystemPayloads[0], &sj); err != nil {
				t.Fatalf("decode payload: %v", err)
			}
			if sj.Status.Reason != tt.reason || sj.Status.Boiler.Percentage != 50 {
				t.Errorf("payload: event=%q reason=%q percentage=%d",
					sj.Status.Event, sj.Status.Reason, sj.Status.Boiler.Percentage)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	got := describe(okOutcome().res)
	want := "percentage: 50%, heating: ON, room light: ON, button pressed: OFF, lights: [ON ON BLINKING OFF]"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
	if amb := describe(ambiguousOutcome().res); !strings.HasSuffix(amb, "(ambiguous)") {
		t.Errorf("ambiguous: got %q", amb)
	}
}

func TestValidateOptions(t *testing.T) {
	good := options{interval: time.Minute, cleanupInterval: 5 * time.Minute, errorDirMaxMB: 100}
	tests := []struct {
		name    string
		mutate  func(o *options)
		wantErr bool
	}{
		{"defaults", func(*options) {}, false},
		{"zero interval", func(o *options) { o.interval = 0 }, true},
		{"negative interval", func(o *options) { o.interval = -time.Second }, true},
		{"zero cleanup interval", func(o *options) { o.cleanupInterval = 0 }, true},
		{"negative cleanup interval", func(o *options) { o.cleanupInterval = -time.Second }, true},
		{"negative size cap", func(o *options) { o.errorDirMaxMB = -1 }, true},
		{"zero size cap", func(o *options) { o.errorDirMaxMB = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := good
			tt.mutate(&o)
			err := validate(o)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate: got %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCancelOnSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	in := make(chan os.Signal, 1)
	out := cancelOnSignal(cancel, in)

	in <- syscall.SIGINT
	select {
	case s := <-out:
		if s != syscall.SIGINT {
			t.Errorf("forwarded %v, want SIGINT", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("signal was not forwarded")
	}
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Errorf("ctx.Err: got %v, want context.Canceled", ctx.Err())
	}
}

// blockingMonitor runs until its context is cancelled.
type blockingMonitor struct {
	started chan struct{}
}

func (b *blockingMonitor) RunCycle(ctx context.Context) (monitor.Result, error) {
	close(b.started)
	<-ctx.Done()
	return monitor.Result{CycleID: "blocked"}, ctx.Err()
}

func TestRunLoopSignalCancelsCycle(t *testing.T) {
	h := newHarness(okOutcome())
	mon := &blockingMonitor{started: make(chan struct{})}
	h.d.monitor = mon

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	in := make(chan os.Signal, 1)
	sig := cancelOnSignal(cancel, in)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(ctx, h.d, nil, nil, sig)
	}()

	select {
	case <-mon.started:
	case <-time.After(2 * time.Second):
		t.Fatal("cycle never started")
	}
	in <- syscall.SIGTERM

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("runLoop returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runLoop did not return after signal")
	}
	if len(h.pub.States) != 0 || len(h.pub.Errors) != 0 {
		t.Errorf("cancelled cycle published: states=%d errors=%v", len(h.pub.States), h.pub.Errors)
	}
	if snap := h.tracker.Snapshot(); snap.Counts.Cycles != 0 {
		t.Errorf("cycles: got %d, want 0", snap.Counts.Cycles)
	}
	if len(h.pub.SystemEvents) != 1 || h.pub.SystemEvents[0].Reason != "SIGTERM" {
		t.Errorf("expected SHUTDOWN with SIGTERM, got %+v", h.pub.SystemEvents)
	}
}
