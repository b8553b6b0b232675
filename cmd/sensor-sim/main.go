// sensor-sim is a synthetic phone. It dials the sensor server and streams
// idle accelerometer noise with periodic punch spikes, plus optional pose
// frames, so the engine can be exercised without a device.
package main

import (
	"context"
	"flag"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-punch/internal/log"
	"github.com/teslashibe/go-punch/pkg/protocol"
)

func main() {
	addr := flag.String("addr", "ws://localhost:5000/ws", "Sensor server websocket URL")
	rate := flag.Int("rate", 50, "Samples per second")
	punchEvery := flag.Duration("punch-every", 4*time.Second, "Interval between synthetic punches")
	withPose := flag.Bool("pose", false, "Also stream synthetic pose frames")
	flag.Parse()

	log.Init("info")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, *addr, nil)
	if err != nil {
		log.Error("dial failed", "addr", *addr, "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	log.Info("connected", "addr", *addr)

	go readAcks(conn)

	sim := &simulator{
		conn:      conn,
		nextPunch: time.Now().Add(*punchEvery),
		interval:  *punchEvery,
		withPose:  *withPose,
	}

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping")
			return
		case <-ticker.C:
			if err := sim.step(); err != nil {
				log.Error("send failed", "error", err)
				return
			}
		}
	}
}

type simulator struct {
	conn      *websocket.Conn
	nextPunch time.Time
	interval  time.Duration
	withPose  bool
	frame     int
}

// step sends one sample. Idle samples sit near gravity with small noise;
// when a punch is due, a short burst of high-magnitude samples goes out and
// a ground-truth label marks it.
func (s *simulator) step() error {
	now := time.Now()
	ts := float64(now.UnixNano()) / float64(time.Second)

	x := rand.NormFloat64() * 0.4
	y := 9.81 + rand.NormFloat64()*0.4
	z := rand.NormFloat64() * 0.4

	punching := now.After(s.nextPunch)
	if punching {
		x += 5 + rand.Float64()*5
		y += 20 + rand.Float64()*15
		z += 8 + rand.Float64()*8

		if err := s.send(protocol.NewGroundTruthMessage("punch", ts)); err != nil {
			return err
		}
		s.nextPunch = now.Add(s.interval)
		log.Info("punch burst", "y", y)
	}

	if err := s.send(protocol.NewSensorMessage(x, y, z, ts)); err != nil {
		return err
	}

	if s.withPose {
		s.frame++
		// Pose runs slower than the accelerometer; roughly 15fps.
		if s.frame%3 == 0 {
			if err := s.send(protocol.NewPoseFrameMessage(syntheticPose(ts, punching), ts)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *simulator) send(msg *protocol.Message, err error) error {
	if err != nil {
		return err
	}
	raw, err := msg.Bytes()
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, raw)
}

// syntheticPose builds a front-facing 33-landmark body. During a punch the
// right wrist extends toward the camera.
func syntheticPose(ts float64, punching bool) []protocol.LandmarkPoint {
	points := make([]protocol.LandmarkPoint, 33)
	for i := range points {
		points[i] = protocol.LandmarkPoint{X: 0.5, Y: 0.5, Visibility: 0.95}
	}

	points[0] = protocol.LandmarkPoint{X: 0.475, Y: 0.3, Visibility: 0.99}  // nose
	points[11] = protocol.LandmarkPoint{X: 0.3, Y: 0.5, Visibility: 0.95}   // left shoulder
	points[12] = protocol.LandmarkPoint{X: 0.65, Y: 0.5, Visibility: 0.95}  // right shoulder
	points[13] = protocol.LandmarkPoint{X: 0.28, Y: 0.62, Visibility: 0.9}  // left elbow
	points[14] = protocol.LandmarkPoint{X: 0.67, Y: 0.62, Visibility: 0.9}  // right elbow
	points[15] = protocol.LandmarkPoint{X: 0.28, Y: 0.72, Visibility: 0.9}  // left wrist

	wristZ := 0.05 * math.Sin(ts)
	if punching {
		wristZ = -0.3
	}
	points[16] = protocol.LandmarkPoint{X: 0.67, Y: 0.72, Z: wristZ, Visibility: 0.9} // right wrist

	return points
}

// readAcks drains server replies so slow reads never stall the connection,
// logging the interesting ones.
func readAcks(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(raw)
		if err != nil {
			continue
		}
		switch msg.Type {
		case protocol.TypeGameUpdate:
			update, err := msg.GetGameUpdatePayload()
			if err != nil {
				continue
			}
			log.Info("game update",
				"score", update.Score,
				"combo", update.Combo,
				"strength", update.Strength)
		case protocol.TypeGroundTruthAck:
			log.Debug("ground truth recorded")
		}
	}
}
