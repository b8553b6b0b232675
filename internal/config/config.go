// Package config provides configuration for the punch detection engine.
// Defaults are baked in, optionally overlaid by a YAML file and a small set
// of environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default server settings.
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = "5000"
)

// ServerConfig holds the sensor server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DetectionConfig tunes the accelerometer scoring and the fusion combiner.
//
// The accelerometer threshold/scoring-max pair and the pose weight split have
// shipped with different values in different tuning passes (see DESIGN.md);
// they are plain configuration here, never compile-time truths.
type DetectionConfig struct {
	// AccelThreshold is the minimum post-gravity motion (m/s²) to register
	// any accelerometer score.
	AccelThreshold float64 `yaml:"accel_threshold"`
	// AccelScoringMax is the motion value (m/s²) mapped to score 1.0.
	AccelScoringMax float64 `yaml:"accel_scoring_max"`
	// AccelConfidenceCutoff is the score above which the accelerometer
	// result is independently confident. Stricter than the raw threshold.
	AccelConfidenceCutoff float64 `yaml:"accel_confidence_cutoff"`
	// AccelWeight is the accelerometer share in the fused score.
	AccelWeight float64 `yaml:"accel_weight"`

	// VisualThreshold is the pose score above which the pose result is
	// independently confident.
	VisualThreshold float64 `yaml:"visual_threshold"`
	// VisualWeight is the pose share in the fused score.
	VisualWeight float64 `yaml:"visual_weight"`

	// CooldownSeconds is the minimum time after a punch before another can
	// register.
	CooldownSeconds float64 `yaml:"cooldown_seconds"`
	// MinimumCombined is the fallback trigger level when no strategy is
	// independently confident.
	MinimumCombined float64 `yaml:"minimum_combined_threshold"`

	// SensorBufferSize bounds the accelerometer sample history.
	SensorBufferSize int `yaml:"sensor_buffer_size"`
	// SampleFreshnessSeconds is how long the last accelerometer result is
	// held when no new sample arrives within a tick.
	SampleFreshnessSeconds float64 `yaml:"sample_freshness_seconds"`
	// ResultStaleSeconds is how old a strategy result may be and still
	// enter the fused mean. Should cover one driver tick with slack.
	ResultStaleSeconds float64 `yaml:"result_stale_seconds"`
}

// PoseConfig tunes the orientation-adaptive pose scoring.
type PoseConfig struct {
	// Orientation classification cutoffs.
	ShoulderWidthCutoff      float64 `yaml:"shoulder_width_cutoff"`
	NoseAlignmentTolerance   float64 `yaml:"nose_alignment_tolerance"`
	ShoulderDepthCutoff      float64 `yaml:"shoulder_depth_cutoff"`
	ShoulderVisibilityCutoff float64 `yaml:"shoulder_visibility_cutoff"`

	// VelocityThreshold normalizes wrist velocity to a score of 1.0
	// (normalized landmark units per second).
	VelocityThreshold float64 `yaml:"velocity_threshold"`
	// SmoothingFrames is the window for velocity averaging.
	SmoothingFrames int `yaml:"smoothing_frames"`

	// ExtensionWeight and MovementWeight split the final pose score
	// between the extension and movement components.
	ExtensionWeight float64 `yaml:"extension_weight"`
	MovementWeight  float64 `yaml:"movement_weight"`
	// ScoreMultiplier boosts the combined pose score before clamping.
	ScoreMultiplier float64 `yaml:"score_multiplier"`

	// FrontMultiplier boosts front-facing depth-extension scores.
	FrontMultiplier float64 `yaml:"front_multiplier"`
	// SideMultiplier boosts side-facing forward-movement scores.
	SideMultiplier float64 `yaml:"side_multiplier"`
	// LateralPenaltyMax is the off-axis displacement (normalized units)
	// at which the front-facing penalty filter reaches full strength.
	LateralPenaltyMax float64 `yaml:"lateral_penalty_max"`
	// MaxSideExtension is the lateral wrist-shoulder distance mapped to a
	// full side-facing position score.
	MaxSideExtension float64 `yaml:"max_side_extension"`
}

// GameConfig tunes score and combo bookkeeping.
type GameConfig struct {
	ComboTimeoutSeconds float64 `yaml:"combo_timeout_seconds"`
	ComboBonusPoints    int     `yaml:"combo_bonus_points"`
	BaseScoreMultiplier int     `yaml:"base_score_multiplier"`
}

// RecordingConfig tunes evaluation session capture.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	BufferSize int    `yaml:"buffer_size"`
}

// Config is the top-level configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	TickHz    int             `yaml:"tick_hz"`
	Server    ServerConfig    `yaml:"server"`
	Detection DetectionConfig `yaml:"detection"`
	Pose      PoseConfig      `yaml:"pose"`
	Game      GameConfig      `yaml:"game"`
	Recording RecordingConfig `yaml:"recording"`
}

// Default returns the baked-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		TickHz:   30,
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Detection: DetectionConfig{
			AccelThreshold:         20.0,
			AccelScoringMax:        40.0,
			AccelConfidenceCutoff:  0.3,
			AccelWeight:            0.7,
			VisualThreshold:        0.3,
			VisualWeight:           0.3,
			CooldownSeconds:        0.5,
			MinimumCombined:        0.2,
			SensorBufferSize:       30,
			SampleFreshnessSeconds: 0.25,
			ResultStaleSeconds:     0.1,
		},
		Pose: PoseConfig{
			ShoulderWidthCutoff:      0.3,
			NoseAlignmentTolerance:   0.05,
			ShoulderDepthCutoff:      0.1,
			ShoulderVisibilityCutoff: 0.7,
			VelocityThreshold:        1.5,
			SmoothingFrames:          3,
			ExtensionWeight:          0.7,
			MovementWeight:           0.3,
			ScoreMultiplier:          2.0,
			FrontMultiplier:          1.2,
			SideMultiplier:           1.3,
			LateralPenaltyMax:        0.4,
			MaxSideExtension:         0.45,
		},
		Game: GameConfig{
			ComboTimeoutSeconds: 2.0,
			ComboBonusPoints:    10,
			BaseScoreMultiplier: 100,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			Dir:        "recordings",
			BufferSize: 100,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults with env overrides applied; a missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays the recognized environment variables.
func (c *Config) applyEnv() {
	if port := os.Getenv("PUNCH_PORT"); port != "" {
		c.Server.Port = port
	}
	if host := os.Getenv("PUNCH_HOST"); host != "" {
		c.Server.Host = host
	}
	if level := os.Getenv("PUNCH_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	d := c.Detection
	if d.AccelThreshold < 0 {
		return fmt.Errorf("config: accel_threshold must be >= 0, got %v", d.AccelThreshold)
	}
	if d.AccelScoringMax <= 0 {
		return fmt.Errorf("config: accel_scoring_max must be > 0, got %v", d.AccelScoringMax)
	}
	if d.AccelWeight < 0 || d.VisualWeight < 0 {
		return fmt.Errorf("config: strategy weights must be >= 0")
	}
	if d.CooldownSeconds < 0 {
		return fmt.Errorf("config: cooldown_seconds must be >= 0, got %v", d.CooldownSeconds)
	}
	if d.SensorBufferSize <= 0 {
		return fmt.Errorf("config: sensor_buffer_size must be > 0, got %d", d.SensorBufferSize)
	}
	if c.Pose.SmoothingFrames <= 0 {
		return fmt.Errorf("config: smoothing_frames must be > 0, got %d", c.Pose.SmoothingFrames)
	}
	if c.Pose.VelocityThreshold <= 0 {
		return fmt.Errorf("config: velocity_threshold must be > 0, got %v", c.Pose.VelocityThreshold)
	}
	if c.TickHz <= 0 {
		return fmt.Errorf("config: tick_hz must be > 0, got %d", c.TickHz)
	}
	return nil
}

// Cooldown returns the fusion cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Detection.CooldownSeconds * float64(time.Second))
}

// SampleFreshness returns the accelerometer hold window as a duration.
func (c *Config) SampleFreshness() time.Duration {
	return time.Duration(c.Detection.SampleFreshnessSeconds * float64(time.Second))
}

// ResultStale returns the fusion staleness window as a duration.
func (c *Config) ResultStale() time.Duration {
	return time.Duration(c.Detection.ResultStaleSeconds * float64(time.Second))
}

// TickInterval returns the driver loop period.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickHz)
}
