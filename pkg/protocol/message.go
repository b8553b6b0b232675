// Package protocol defines the WebSocket message types exchanged between the
// host and phone sensor clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Phone → Host messages
	TypeSensorData  MessageType = "sensor_data"  // Accelerometer sample
	TypePoseFrame   MessageType = "pose_frame"   // Body landmark frame
	TypeGroundTruth MessageType = "ground_truth" // Labeled punch marker
	TypeGetStatus   MessageType = "get_status"   // Status request

	// Host → Phone messages
	TypeStatus         MessageType = "status"           // Server status snapshot
	TypeSensorAck      MessageType = "sensor_ack"       // Sample received
	TypeGameUpdate     MessageType = "game_update"      // Score/combo change
	TypeGroundTruthAck MessageType = "ground_truth_ack" // Label recorded
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Phone → Host Message Types
// =============================================================================

// SensorPayload contains one accelerometer sample in m/s^2, gravity included.
type SensorPayload struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Timestamp float64 `json:"timestamp"` // Unix seconds, sender clock
}

// LandmarkPoint is one body landmark in normalized image coordinates.
type LandmarkPoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// PoseFramePayload contains one landmark frame from the pose backend.
// A frame with no detected person carries an empty landmark list.
type PoseFramePayload struct {
	Landmarks []LandmarkPoint `json:"landmarks"`
	Timestamp float64         `json:"timestamp"` // Unix seconds, sender clock
}

// GroundTruthPayload marks a labeled event for offline evaluation.
type GroundTruthPayload struct {
	Label     string  `json:"label"` // "punch", "negative"
	Timestamp float64 `json:"timestamp"`
}

// =============================================================================
// Host → Phone Message Types
// =============================================================================

// StatusPayload is a server status snapshot.
type StatusPayload struct {
	Clients       int     `json:"clients"`
	SensorActive  bool    `json:"sensor_active"`
	PoseActive    bool    `json:"pose_active"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// AckPayload acknowledges a received message.
type AckPayload struct {
	Received int64 `json:"received"` // Unix milliseconds, host clock
}

// GameUpdatePayload broadcasts the game state after a detection tick.
type GameUpdatePayload struct {
	Punch      bool    `json:"punch"`
	Strength   float64 `json:"strength"`
	Score      int     `json:"score"`
	Combo      int     `json:"combo"`
	TotalHits  int     `json:"total_hits"`
	LastPoints int     `json:"last_points,omitempty"`
}
