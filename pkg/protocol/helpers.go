package protocol

import "time"

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewSensorMessage creates an accelerometer sample message
func NewSensorMessage(x, y, z, timestamp float64) (*Message, error) {
	return NewMessage(TypeSensorData, SensorPayload{
		X:         x,
		Y:         y,
		Z:         z,
		Timestamp: timestamp,
	})
}

// NewPoseFrameMessage creates a landmark frame message
func NewPoseFrameMessage(landmarks []LandmarkPoint, timestamp float64) (*Message, error) {
	return NewMessage(TypePoseFrame, PoseFramePayload{
		Landmarks: landmarks,
		Timestamp: timestamp,
	})
}

// NewGroundTruthMessage creates a labeled event marker
func NewGroundTruthMessage(label string, timestamp float64) (*Message, error) {
	return NewMessage(TypeGroundTruth, GroundTruthPayload{
		Label:     label,
		Timestamp: timestamp,
	})
}

// NewStatusMessage creates a server status snapshot
func NewStatusMessage(clients int, sensorActive, poseActive bool, uptime float64) (*Message, error) {
	return NewMessage(TypeStatus, StatusPayload{
		Clients:       clients,
		SensorActive:  sensorActive,
		PoseActive:    poseActive,
		UptimeSeconds: uptime,
	})
}

// NewAckMessage creates an acknowledgement of the given type
func NewAckMessage(msgType MessageType) (*Message, error) {
	return NewMessage(msgType, AckPayload{
		Received: time.Now().UnixMilli(),
	})
}

// NewGameUpdateMessage creates a game state broadcast
func NewGameUpdateMessage(update GameUpdatePayload) (*Message, error) {
	return NewMessage(TypeGameUpdate, update)
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetSensorPayload extracts an accelerometer sample from a message
func (m *Message) GetSensorPayload() (*SensorPayload, error) {
	var data SensorPayload
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPoseFramePayload extracts a landmark frame from a message
func (m *Message) GetPoseFramePayload() (*PoseFramePayload, error) {
	var data PoseFramePayload
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGroundTruthPayload extracts a labeled event from a message
func (m *Message) GetGroundTruthPayload() (*GroundTruthPayload, error) {
	var data GroundTruthPayload
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGameUpdatePayload extracts a game state broadcast from a message
func (m *Message) GetGameUpdatePayload() (*GameUpdatePayload, error) {
	var data GameUpdatePayload
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
