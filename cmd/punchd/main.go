package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-punch/internal/config"
	"github.com/teslashibe/go-punch/internal/log"
	"github.com/teslashibe/go-punch/pkg/detect"
	"github.com/teslashibe/go-punch/pkg/detect/accel"
	"github.com/teslashibe/go-punch/pkg/detect/pose"
	"github.com/teslashibe/go-punch/pkg/events"
	"github.com/teslashibe/go-punch/pkg/game"
	"github.com/teslashibe/go-punch/pkg/protocol"
	"github.com/teslashibe/go-punch/pkg/recording"
	"github.com/teslashibe/go-punch/pkg/sensor"
)

// hudEvery is how many ticks pass between HUD log lines (~3s at 30Hz).
const hudEvery = 90

func main() {
	configPath := flag.String("config", "", "Path to punch.yaml (or set PUNCH_CONFIG env)")
	record := flag.Bool("record", false, "Record the session for offline evaluation")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("PUNCH_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Init("info")
		log.Error("config load failed", "path", path, "error", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	if err := run(ctx, cfg, *record || cfg.Recording.Enabled); err != nil {
		log.Error("engine stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the engine together and drives the detection tick loop until
// the context is cancelled.
func run(ctx context.Context, cfg config.Config, record bool) error {
	bus := events.NewBus()

	accelStrategy := accel.NewStrategy(accel.Config{
		Analyzer: accel.MotionAnalyzer{
			Threshold:        cfg.Detection.AccelThreshold,
			ScoringMax:       cfg.Detection.AccelScoringMax,
			ConfidenceCutoff: cfg.Detection.AccelConfidenceCutoff,
		},
		BufferSize: cfg.Detection.SensorBufferSize,
		Freshness:  cfg.SampleFreshness(),
	})
	poseStrategy := pose.NewStrategy(cfg.Pose, cfg.Detection.VisualThreshold)

	fusion := detect.NewFusionDetector(detect.FusionConfig{
		Cooldown:    cfg.Cooldown(),
		MinCombined: cfg.Detection.MinimumCombined,
		StaleAfter:  cfg.ResultStale(),
	})

	gameState := game.New(cfg.Game)
	recorder := recording.New(cfg.Recording)

	accelStrategy.RegisterHooks(bus)
	poseStrategy.RegisterHooks(bus)
	gameState.RegisterHooks(bus)
	recorder.RegisterHooks(bus)

	server := sensor.NewServer(cfg.Server)
	server.OnSensorData = func(p protocol.SensorPayload) {
		accelStrategy.Ingest(accel.Sample{X: p.X, Y: p.Y, Z: p.Z, Timestamp: p.Timestamp})
		recorder.RecordSample(p.X, p.Y, p.Z)
	}
	server.OnPoseFrame = func(p protocol.PoseFramePayload) {
		poseStrategy.IngestFrame(toPoseFrame(p))
	}
	server.OnGroundTruth = func(p protocol.GroundTruthPayload) {
		recorder.RecordLabel(p.Label)
	}
	server.Status = func() (bool, bool) {
		return accelStrategy.Active(), poseStrategy.Active()
	}

	bus.Trigger(events.EventSetup)
	defer bus.Trigger(events.EventCleanup)

	// A strategy whose setup failed stays out of fusion rather than taking
	// the engine down. Setup is idempotent, so probing it again is free for
	// the ones that came up.
	memberships := []struct {
		strategy detect.Strategy
		weight   float64
	}{
		{accelStrategy, cfg.Detection.AccelWeight},
		{poseStrategy, cfg.Detection.VisualWeight},
	}
	for _, m := range memberships {
		if err := m.strategy.Setup(); err != nil {
			log.Error("strategy setup failed", "strategy", m.strategy.Name(), "error", err)
			continue
		}
		fusion.AddStrategy(m.strategy, m.weight)
	}

	if record {
		if err := recorder.Start(cfg.Detection); err != nil {
			return err
		}
		defer func() {
			if dir, err := recorder.Stop(); err != nil {
				log.Error("recording stop failed", "error", err)
			} else if dir != "" {
				log.Info("session saved", "dir", dir)
			}
		}()
	}

	server.StartAsync()
	defer server.Shutdown()

	log.Info("punch engine running",
		"addr", cfg.Server.Addr(),
		"tick_hz", cfg.TickHz,
		"strategies", fusion.StrategyCount())

	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()

	var tickCount uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tickCount++
			tick(bus, fusion, gameState, recorder, server)
			if tickCount%hudEvery == 0 {
				logHUD(bus)
			}
		}
	}
}

// tick runs one detection cycle: drain queued sensor input, fuse, and fan
// out any punch to the game, the bus and the connected phones.
func tick(bus *events.Bus, fusion *detect.FusionDetector, gameState *game.State,
	recorder *recording.Recorder, server *sensor.Server) {

	bus.Trigger(events.EventSensorDrain)
	bus.Trigger(events.EventFrameReceived)

	decision := fusion.Detect()
	if !decision.Punch {
		return
	}

	snap := gameState.RegisterPunch(decision.Score)
	log.Info("punch detected",
		"strength", decision.Score,
		"points", snap.LastPoints,
		"combo", snap.Combo,
		"score", snap.Score)

	bus.Trigger(events.EventPunchDetected, decision, snap.LastPoints, snap.Combo)
	bus.Trigger(events.EventGameStateChanged, snap)

	server.BroadcastGameUpdate(protocol.GameUpdatePayload{
		Punch:      true,
		Strength:   decision.Score,
		Score:      snap.Score,
		Combo:      snap.Combo,
		TotalHits:  snap.TotalHits,
		LastPoints: snap.LastPoints,
	})
}

// logHUD renders the chained HUD lines into a single log record.
func logHUD(bus *events.Bus) {
	result := bus.TriggerChain(events.EventDrawHUD, events.Context{
		"lines":  []string{},
		"next_y": 40,
	})
	if lines, ok := result["lines"].([]string); ok && len(lines) > 0 {
		log.Info("hud", "lines", lines)
	}
}

func toPoseFrame(p protocol.PoseFramePayload) pose.Frame {
	landmarks := make([]pose.Landmark, len(p.Landmarks))
	for i, lm := range p.Landmarks {
		landmarks[i] = pose.Landmark{X: lm.X, Y: lm.Y, Z: lm.Z, Visibility: lm.Visibility}
	}
	return pose.Frame{Landmarks: landmarks, Timestamp: p.Timestamp}
}
