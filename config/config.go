// Package config loads the TOML configuration shared by the decoder
// CLI and the demo producer: where the buffer lives, which producer
// binary and (optional) sibling loc-decoder to resolve strings and
// locations against, and the ring's default capacity.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the on-disk shape for both nanotrace-decode and
// nanotrace-demo. Either binary only reads the fields it needs.
type Config struct {
	Buffer   BufferConfig   `toml:"buffer"`
	Producer ProducerConfig `toml:"producer"`
	Decoder  DecoderConfig  `toml:"decoder"`
}

// BufferConfig describes the ring buffer's on-disk location and shape.
type BufferConfig struct {
	Path     string `toml:"path"`
	Capacity uint16 `toml:"capacity"`
}

// ProducerConfig drives the demo producer.
type ProducerConfig struct {
	Workers      int    `toml:"workers"`
	EmitPerSec   int    `toml:"emit_per_sec"`
	SingleThread bool   `toml:"single_thread"`
	LocType      string `toml:"loc_type"` // "none", "table", "section"
}

// DecoderConfig drives nanotrace-decode's default flag values.
type DecoderConfig struct {
	BinaryPath     string `toml:"binary_path"`
	LocDecoderPath string `toml:"loc_decoder_path"` // overrides the "<binary>_loc" sibling convention
	DecodeLoc      bool   `toml:"decode_loc"`
}

// Load reads and parses the TOML config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := toml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}
