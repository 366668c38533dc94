// Command boiler-vision watches the boiler's charge lights through a webcam
// and publishes the inferred state to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/pflag"

	"github.com/sweeney/boiler-vision/internal/calibration"
	"github.com/sweeney/boiler-vision/internal/camera"
	"github.com/sweeney/boiler-vision/internal/config"
	"github.com/sweeney/boiler-vision/internal/diagnostics"
	"github.com/sweeney/boiler-vision/internal/gpio"
	"github.com/sweeney/boiler-vision/internal/logging"
	"github.com/sweeney/boiler-vision/internal/logic"
	"github.com/sweeney/boiler-vision/internal/metrics"
	"github.com/sweeney/boiler-vision/internal/monitor"
	"github.com/sweeney/boiler-vision/internal/mqtt"
	"github.com/sweeney/boiler-vision/internal/status"
	"github.com/sweeney/boiler-vision/internal/web"
)

type options struct {
	interval        time.Duration
	broker          string
	username        string
	password        string
	clientID        string
	errorDir        string
	errorDirMaxMB   int
	cleanupInterval time.Duration
	cameraIndex     int
	warmup          time.Duration
	calibrationFile string
	logLevel        string
	logFormat       string
	httpAddr        string
	heartbeat       time.Duration
	ledPin          int
	once            bool
}

func main() {
	// A missing .env is normal; the process environment is used instead.
	_ = config.Load()

	var o options
	pflag.DurationVar(&o.interval, "interval", config.GetEnvSeconds("WATCHER_SLEEP_SECONDS", 60*time.Second), "Time between detection cycles")
	pflag.StringVar(&o.broker, "broker", config.GetEnv("MQTT_BROKER", "tcp://192.168.1.200:1883"), "MQTT broker address")
	pflag.StringVar(&o.username, "username", config.GetEnv("MQTT_USERNAME", ""), "MQTT username")
	pflag.StringVar(&o.password, "password", config.GetEnv("MQTT_PASSWORD", ""), "MQTT password")
	pflag.StringVar(&o.clientID, "client-id", config.GetEnv("MQTT_CLIENT_ID", "boiler-vision"), "MQTT client ID")
	pflag.StringVar(&o.errorDir, "error-dir", config.GetEnv("ERROR_IMAGE_DIR", "./images/errors"), "Directory for diagnostic images")
	pflag.IntVar(&o.errorDirMaxMB, "error-dir-max-mb", config.GetEnvInt("ERROR_IMAGE_DIR_MAX_SIZE_MB", 100), "Size cap of the diagnostic image directory in MB")
	pflag.DurationVar(&o.cleanupInterval, "cleanup-interval", config.GetEnvSeconds("ERROR_IMAGE_DIR_CLEANUP_INTERVAL_SECONDS", 300*time.Second), "How often the diagnostic image directory is pruned")
	pflag.IntVar(&o.cameraIndex, "camera", config.GetEnvInt("CAMERA_INDEX", 0), "Video device index")
	pflag.DurationVar(&o.warmup, "camera-warmup", config.GetEnvDuration("CAMERA_WARMUP", 2*time.Second), "Time given to the camera to settle exposure at startup")
	pflag.StringVar(&o.calibrationFile, "calibration", config.GetEnv("CALIBRATION_FILE", "./calibration.toml"), "Calibration file")
	pflag.StringVar(&o.logLevel, "log-level", config.GetEnv("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	pflag.StringVar(&o.logFormat, "log-format", config.GetEnv("LOG_FORMAT", "text"), "Log format (text, json)")
	pflag.StringVar(&o.httpAddr, "http", config.GetEnv("HTTP_ADDR", ":80"), "HTTP status address (empty to disable)")
	pflag.DurationVar(&o.heartbeat, "heartbeat", config.GetEnvDuration("HEARTBEAT", 15*time.Minute), "Heartbeat interval (0 to disable)")
	pflag.IntVar(&o.ledPin, "led-pin", config.GetEnvInt("LED_PIN", -1), "BCM pin of the error LED (-1 to disable)")
	pflag.BoolVar(&o.once, "once", false, "Run one detection cycle, print the state and exit")
	pflag.Parse()

	log := logging.New(o.logLevel, o.logFormat)

	if err := run(o, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// validate rejects option values that would stall or crash the loop.
func validate(o options) error {
	if o.interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", o.interval)
	}
	if o.cleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive, got %v", o.cleanupInterval)
	}
	if o.errorDirMaxMB < 0 {
		return fmt.Errorf("error dir size cap must not be negative, got %d", o.errorDirMaxMB)
	}
	return nil
}

func run(o options, log *slog.Logger) error {
	if err := validate(o); err != nil {
		return err
	}
	cal, err := calibration.Load(o.calibrationFile)
	if err != nil {
		return err
	}
	log.Info("calibration loaded", "file", o.calibrationFile, "lights", len(cal.Regions),
		"samples", cal.Window.Samples, "sample_interval", cal.Window.Interval)

	source, err := camera.NewRealSource(o.cameraIndex, cal.FrameWidth, cal.FrameHeight, o.warmup)
	if err != nil {
		return fmt.Errorf("init camera: %w", err)
	}
	defer source.Close()

	mon, err := monitor.New(source, cal.Sampler, cal.Bounds, monitor.Config{
		Samples:        cal.Window.Samples,
		SampleInterval: cal.Window.Interval,
		Thresholds:     cal.Window.Thresholds,
		Ambient:        cal.Ambient,
	}, log)
	if err != nil {
		return fmt.Errorf("init monitor: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One-shot mode
	if o.once {
		res, err := mon.RunCycle(ctx)
		if err != nil && !errors.Is(err, logic.ErrAmbiguousBlinkState) {
			return fmt.Errorf("detection cycle: %w", err)
		}
		fmt.Println(describe(res))
		return nil
	}

	sink, err := diagnostics.NewSink(o.errorDir)
	if err != nil {
		return err
	}
	pruner := &diagnostics.Pruner{
		Dir:      o.errorDir,
		MaxBytes: int64(o.errorDirMaxMB) * 1024 * 1024,
		Log:      log,
	}
	go pruner.Run(ctx, o.cleanupInterval)

	var led gpio.Indicator = gpio.Noop{}
	if o.ledPin >= 0 {
		ind, err := gpio.NewRealIndicator(o.ledPin)
		if err != nil {
			log.Warn("error LED disabled", "pin", o.ledPin, "err", err)
		} else {
			led = ind
		}
	}
	defer led.Close()

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   o.broker,
		ClientID: o.clientID,
		Username: o.username,
		Password: o.password,
		Log:      log,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		IntervalMs:       o.interval.Milliseconds(),
		Samples:          cal.Window.Samples,
		SampleIntervalMs: cal.Window.Interval.Milliseconds(),
		HeartbeatMs:      o.heartbeat.Milliseconds(),
		Broker:           o.broker,
		HTTPAddr:         o.httpAddr,
		CameraIndex:      o.cameraIndex,
		ErrorImageDir:    o.errorDir,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	m := metrics.New()

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn("failed to publish startup event", "err", err)
	} else {
		log.Info("published startup event")
	}

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, web.Options{
			Log:     log,
			Metrics: m,
			Refresh: func() { m.SetMQTTConnected(publisher.IsConnected()) },
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", o.httpAddr)
	}

	log.Info("started", "interval", o.interval, "broker", o.broker, "heartbeat", o.heartbeat,
		"camera", o.cameraIndex, "error_dir", o.errorDir)
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Debug("sd_notify failed", "err", err)
	}
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := &deps{
		monitor:   mon,
		publisher: publisher,
		conn:      publisher,
		tracker:   tracker,
		metrics:   m,
		sink:      sink,
		led:       led,
		heartbeat: o.heartbeat,
		now:       time.Now,
		log:       log,
	}
	return runLoop(ctx, d, ticker.C, publisher.ForceCheck(), cancelOnSignal(cancel, sigCh))
}

// cancelOnSignal cancels the cycle context when a signal arrives and then
// forwards the signal, so an in-flight cycle stops before shutdown.
func cancelOnSignal(cancel context.CancelFunc, in <-chan os.Signal) <-chan os.Signal {
	out := make(chan os.Signal, 1)
	go func() {
		s := <-in
		cancel()
		out <- s
	}()
	return out
}

// cycleRunner runs one detection cycle.
type cycleRunner interface {
	RunCycle(ctx context.Context) (monitor.Result, error)
}

// frameSink stores the frames of a failed or ambiguous cycle.
type frameSink interface {
	Capture(cycleID, reason string, frames []camera.Frame) ([]string, error)
}

type deps struct {
	monitor   cycleRunner
	publisher mqtt.Publisher
	conn      mqtt.ConnectionStatus
	tracker   *status.Tracker
	metrics   *metrics.Metrics
	sink      frameSink
	led       gpio.Indicator
	heartbeat time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// runLoop runs a detection cycle at startup, on every tick and on every
// force check request until a signal arrives.
func runLoop(ctx context.Context, d *deps, tick <-chan time.Time, force <-chan struct{}, sig <-chan os.Signal) error {
	hb := logic.NewHeartbeat(d.now())
	forcePending := false

	cycle := func() {
		if runCycle(ctx, d) && forcePending {
			forcePending = false
			if err := d.publisher.PublishForceCheck(d.now()); err != nil {
				d.log.Warn("force check publish error", "err", err)
			}
		}
		checkHeartbeat(d, hb)
	}

	cycle()
	for {
		select {
		case s := <-sig:
			d.log.Info("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			syncConnected(d)
			event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName)
			if err := d.publisher.PublishSystem(event); err != nil {
				d.log.Warn("failed to publish shutdown event", "err", err)
			} else {
				d.log.Info("published shutdown event")
			}
			return nil

		case <-force:
			d.log.Info("force check requested")
			forcePending = true
			cycle()

		case <-tick:
			cycle()
		}
	}
}

// runCycle runs and publishes one detection cycle. It reports whether a
// state was published.
func runCycle(ctx context.Context, d *deps) bool {
	if !syncConnected(d) {
		d.log.Warn("mqtt not connected, skipping cycle")
		d.tracker.RecordSkipped()
		d.metrics.ObserveSkipped()
		return false
	}

	res, err := d.monitor.RunCycle(ctx)
	log := d.log.With("cycle", res.CycleID)
	at := d.now()

	switch {
	case err == nil || errors.Is(err, logic.ErrAmbiguousBlinkState):
		ambiguous := err != nil
		if ambiguous {
			log.Warn("ambiguous blink state", "err", err, "lights", res.Determinations)
			d.tracker.RecordAmbiguity(at, err)
			capture(d, log, res.CycleID, "ambiguous", res.DiagnosticFrames())
		}
		d.tracker.RecordResult(at, res.State, res.Ambient.RoomLight, res.Ambient.ButtonPressed)
		d.metrics.ObserveCycle(at, res.Duration, res.State, res.Ambient.RoomLight, res.Ambient.ButtonPressed, res.Tallies)
		setLED(d, log, ambiguous)
		if res.Reference.Image != nil {
			if jpeg, err := diagnostics.EncodeJPEG(res.Reference.Image); err == nil {
				d.tracker.SetFrame(jpeg, res.Reference.Captured)
			} else {
				log.Warn("encode reference frame", "err", err)
			}
		}

		log.Info("cycle complete",
			"percentage", res.State.Percentage,
			"heating", res.State.Heating,
			"room_light", res.Ambient.RoomLight,
			"button_pressed", res.Ambient.ButtonPressed,
			"duration", res.Duration)
		update := mqtt.StateUpdate{
			Timestamp:     at,
			CycleID:       res.CycleID,
			State:         res.State,
			RoomLight:     res.Ambient.RoomLight,
			ButtonPressed: res.Ambient.ButtonPressed,
		}
		if err := d.publisher.PublishState(update); err != nil {
			// Don't crash on publish failure
			log.Warn("publish error", "err", err)
			return false
		}
		return true

	case errors.Is(err, context.Canceled):
		log.Info("cycle cancelled")
		return false

	default:
		if errors.Is(err, camera.ErrCaptureUnavailable) {
			log.Warn("capture unavailable, retrying next cycle", "err", err)
		} else {
			log.Error("cycle failed", "err", err)
		}
		d.tracker.RecordFailure(at, err)
		d.metrics.ObserveFailure(res.Duration)
		setLED(d, log, true)
		frames := res.Frames
		if len(frames) == 0 && !errors.Is(err, camera.ErrCaptureUnavailable) {
			frames = res.DiagnosticFrames()
		}
		if len(frames) > 0 {
			capture(d, log, res.CycleID, "failed", frames)
		}
		if err := d.publisher.PublishError(true); err != nil {
			log.Warn("publish error", "err", err)
		}
		return false
	}
}

func capture(d *deps, log *slog.Logger, cycleID, reason string, frames []camera.Frame) {
	if d.sink == nil {
		return
	}
	paths, err := d.sink.Capture(cycleID, reason, frames)
	if err != nil {
		log.Warn("diagnostic capture failed", "err", err)
	}
	if len(paths) > 0 {
		log.Info("diagnostic frames saved", "reason", reason, "count", len(paths), "first", paths[0])
	}
}

func setLED(d *deps, log *slog.Logger, on bool) {
	if d.led == nil {
		return
	}
	if err := d.led.Set(on); err != nil {
		log.Warn("error LED", "err", err)
	}
}

// syncConnected copies the broker connection state to the tracker and
// metrics and returns it. A nil conn counts as connected.
func syncConnected(d *deps) bool {
	if d.conn == nil {
		return true
	}
	connected := d.conn.IsConnected()
	d.tracker.SetMQTTConnected(connected)
	d.metrics.SetMQTTConnected(connected)
	return connected
}

func checkHeartbeat(d *deps, hb *logic.Heartbeat) {
	hbData := hb.Check(d.now(), d.heartbeat)
	if hbData == nil {
		return
	}
	snap := d.tracker.Snapshot()
	d.log.Info("heartbeat", "uptime", hbData.Uptime, "cycles", snap.Counts.Cycles,
		"failed", snap.Counts.Failed, "ambiguous", snap.Counts.Ambiguous, "skipped", snap.Counts.Skipped)

	syncConnected(d)
	// Refresh network info for heartbeat
	if net := readNetworkInfo(); net != nil {
		d.tracker.SetNetwork(net)
	}
	hbEvent := mqtt.SystemEvent{
		Timestamp:  hbData.Timestamp,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", ""),
	}
	if err := d.publisher.PublishSystem(hbEvent); err != nil {
		d.log.Warn("heartbeat publish error", "err", err)
	}
}

// describe renders a cycle result for --once.
func describe(res monitor.Result) string {
	s := res.State
	out := fmt.Sprintf("percentage: %d%%, heating: %s, room light: %s, button pressed: %s, lights: %v",
		s.Percentage, mqtt.OnOff(s.Heating), mqtt.OnOff(res.Ambient.RoomLight),
		mqtt.OnOff(res.Ambient.ButtonPressed), status.LightLabels(s))
	if s.Ambiguous {
		out += " (ambiguous)"
	}
	return out
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
