package server

import "time"

type PrometheusConfig struct {
	AccessToken string `yaml:"access_token"`
}

// OpsConfig configures the optional HTTP listener serving metrics and
// status. Disabled when BindAddr is empty.
type OpsConfig struct {
	BindAddr   string           `yaml:"bind_addr"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

type Config struct {
	BindHost  string `yaml:"bind_host"`
	ChatPort  int    `yaml:"chat_port"`
	VoicePort int    `yaml:"voice_port"`

	// MaxFrameBytes bounds a single wire frame on either channel.
	MaxFrameBytes uint32 `yaml:"max_frame_bytes"`

	// ReadTimeout evicts connections that stay silent for longer. Chat
	// clients are expected to send heartbeats well within this window.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	Ops OpsConfig `yaml:"ops"`
}
