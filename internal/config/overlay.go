package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Overlay is the YAML file form of the relay options. Unset keys leave the
// environment value in place.
type Overlay struct {
	HistorySize *int  `yaml:"history_size"`
	LocalEcho   *bool `yaml:"local_echo"`
	RelayMedia  *bool `yaml:"relay_media"`
	Self        struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"self"`
	SendErrorAck *bool `yaml:"send_error_ack"`
}

// LoadOverlay reads and validates an overlay file.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("relay config: %w", err)
	}
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("relay config: %w", err)
	}
	if o.HistorySize != nil && *o.HistorySize < 1 {
		return nil, fmt.Errorf("relay config: history_size must be positive, got %d", *o.HistorySize)
	}
	return &o, nil
}

// Apply copies the keys present in the overlay onto cfg.
func (o *Overlay) Apply(cfg *Config) {
	if o.HistorySize != nil {
		cfg.HistorySize = *o.HistorySize
	}
	if o.LocalEcho != nil {
		cfg.LocalEcho = *o.LocalEcho
	}
	if o.RelayMedia != nil {
		cfg.RelayMedia = *o.RelayMedia
	}
	if o.Self.ID != "" {
		cfg.SelfID = o.Self.ID
	}
	if o.Self.Name != "" {
		cfg.SelfName = o.Self.Name
	}
	if o.SendErrorAck != nil {
		cfg.SendErrorAck = *o.SendErrorAck
	}
}
