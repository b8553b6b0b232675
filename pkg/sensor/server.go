package sensor

import (
	_ "embed"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-punch/internal/config"
	"github.com/teslashibe/go-punch/internal/log"
	"github.com/teslashibe/go-punch/pkg/protocol"
)

//go:embed static/index.html
var phonePage []byte

// Server is the phone-facing ingestion server. It accepts accelerometer
// samples, pose frames and ground-truth labels over a websocket and pushes
// game updates back to every connected phone.
type Server struct {
	app *fiber.App
	cfg config.ServerConfig
	hub *Hub

	started time.Time

	// Ingestion callbacks, wired by the host before Start. Each runs on a
	// connection's read goroutine and must hand off quickly.
	OnSensorData  func(protocol.SensorPayload)
	OnPoseFrame   func(protocol.PoseFramePayload)
	OnGroundTruth func(protocol.GroundTruthPayload)

	// Status probes the detection side for the status endpoint.
	Status func() (sensorActive, poseActive bool)
}

// NewServer creates the ingestion server.
func NewServer(cfg config.ServerConfig) *Server {
	s := &Server{
		cfg:     cfg,
		hub:     NewHub("phones"),
		started: time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-punch",
		DisableStartupMessage: true,
	})

	// CORS so the phone page can be served from elsewhere during development
	app.Use(cors.New())

	app.Get("/", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(phonePage)
	})

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(s.handleWS))

	s.app = app
	return s
}

// Start runs the hub and listens on the configured address. Blocks.
func (s *Server) Start() error {
	go s.hub.Run()
	addr := s.cfg.Addr()
	log.Info("sensor server listening", "addr", addr)
	return s.app.Listen(addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("sensor server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// ClientCount returns the number of connected phones.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

// BroadcastGameUpdate pushes a game state change to every connected phone.
func (s *Server) BroadcastGameUpdate(update protocol.GameUpdatePayload) {
	msg, err := protocol.NewGameUpdateMessage(update)
	if err != nil {
		return
	}
	raw, err := msg.Bytes()
	if err != nil {
		return
	}
	s.hub.Broadcast(raw)
}

func (s *Server) handleWS(c *websocket.Conn) {
	client := NewClient(s.hub, c, s.handleInbound)
	client.Run()
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.statusPayload())
}

func (s *Server) statusPayload() protocol.StatusPayload {
	var sensorActive, poseActive bool
	if s.Status != nil {
		sensorActive, poseActive = s.Status()
	}
	return protocol.StatusPayload{
		Clients:       s.hub.ClientCount(),
		SensorActive:  sensorActive,
		PoseActive:    poseActive,
		UptimeSeconds: time.Since(s.started).Seconds(),
	}
}

// handleInbound routes one raw client message to the matching callback and
// builds the per-client reply. Unknown types are dropped without error so
// newer clients can talk to older hosts.
func (s *Server) handleInbound(raw []byte) ([]byte, error) {
	msg, err := protocol.ParseMessage(raw)
	if err != nil {
		return nil, err
	}

	switch msg.Type {
	case protocol.TypeSensorData:
		payload, err := msg.GetSensorPayload()
		if err != nil {
			return nil, err
		}
		if s.OnSensorData != nil {
			s.OnSensorData(*payload)
		}
		return s.encodeReply(protocol.NewAckMessage(protocol.TypeSensorAck))

	case protocol.TypePoseFrame:
		payload, err := msg.GetPoseFramePayload()
		if err != nil {
			return nil, err
		}
		if s.OnPoseFrame != nil {
			s.OnPoseFrame(*payload)
		}
		return nil, nil

	case protocol.TypeGroundTruth:
		payload, err := msg.GetGroundTruthPayload()
		if err != nil {
			return nil, err
		}
		if s.OnGroundTruth != nil {
			s.OnGroundTruth(*payload)
		}
		return s.encodeReply(protocol.NewAckMessage(protocol.TypeGroundTruthAck))

	case protocol.TypeGetStatus:
		status := s.statusPayload()
		return s.encodeReply(protocol.NewMessage(protocol.TypeStatus, status))

	default:
		log.Debug("ignoring unknown message type", "type", string(msg.Type))
		return nil, nil
	}
}

func (s *Server) encodeReply(msg *protocol.Message, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return msg.Bytes()
}
