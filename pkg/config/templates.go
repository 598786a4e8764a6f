package config

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/danmuck/tsnmanifest/pkg/manifest"
	"github.com/pelletier/go-toml/v2"
)

const templateHeader = "# Stream manifest. payload_size may be omitted; it defaults to the kind's encoded size.\n\n"

// Render encodes entries as a TOML deployment file.
func Render(entries []manifest.Descriptor, order binary.ByteOrder, policy manifest.AddressPolicy) ([]byte, error) {
	raw := fileConfig{
		ByteOrder:     byteOrderName(order),
		AddressPolicy: policy.String(),
		Streams:       make([]streamConfig, 0, len(entries)),
	}
	for _, d := range entries {
		size := d.PayloadSize
		raw.Streams = append(raw.Streams, streamConfig{
			Name:        d.Name,
			StreamID:    d.StreamID,
			Dst:         d.Dst.String(),
			Class:       d.Class.String(),
			Kind:        d.Kind.String(),
			PayloadSize: &size,
			Freq:        d.Freq,
		})
	}
	body, err := toml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("config render failed: %w", err)
	}
	return append([]byte(templateHeader), body...), nil
}

// WriteTemplate writes the reference manifest to path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	body, err := Render(manifest.DefaultEntries(), binary.LittleEndian, manifest.PolicyAny)
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o600)
}
