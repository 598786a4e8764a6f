// Package config loads a deployment's stream manifest from a TOML or YAML file.
//
// Code that declares its manifest as a literal never needs this package; it exists
// for deployments that pin byte order, address policy and streams outside the binary.
package config

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/tsnmanifest/internal/logging"
	"github.com/danmuck/tsnmanifest/pkg/manifest"
	"github.com/danmuck/tsnmanifest/pkg/protocol/layout"
	"github.com/danmuck/tsnmanifest/pkg/protocol/payload"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	ByteOrder     string         `toml:"byte_order" yaml:"byte_order"`
	AddressPolicy string         `toml:"address_policy" yaml:"address_policy"`
	Streams       []streamConfig `toml:"streams" yaml:"streams"`
}

type streamConfig struct {
	Name        string `toml:"name" yaml:"name"`
	StreamID    uint64 `toml:"stream_id" yaml:"stream_id"`
	Dst         string `toml:"dst" yaml:"dst"`
	Class       string `toml:"class" yaml:"class"`
	Kind        string `toml:"kind" yaml:"kind"`
	PayloadSize *int   `toml:"payload_size,omitempty" yaml:"payload_size,omitempty"`
	Freq        int    `toml:"freq" yaml:"freq"`
}

// Deployment is a validated manifest plus the wire settings it was declared with.
type Deployment struct {
	ByteOrder     binary.ByteOrder
	AddressPolicy manifest.AddressPolicy
	Manifest      *manifest.Table
}

// Codec returns a payload codec using the deployment's byte order.
func (d Deployment) Codec() payload.Codec {
	return payload.NewCodec(d.ByteOrder)
}

// Load reads path, picking the decoder from its extension.
// The first call installs the runtime logger unless one is already configured.
func Load(path string) (Deployment, error) {
	logging.ConfigureRuntime()
	var raw fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := decodeTOML(path, &raw); err != nil {
			return Deployment{}, err
		}
	case ".yaml", ".yml":
		if err := decodeYAML(path, &raw); err != nil {
			return Deployment{}, err
		}
	default:
		return Deployment{}, fmt.Errorf("config load failed (%s): unsupported extension", path)
	}

	dep, err := resolve(raw)
	if err != nil {
		return Deployment{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	log.Info().Str("path", path).Int("streams", dep.Manifest.Len()).
		Str("byte_order", dep.ByteOrder.String()).Str("address_policy", dep.AddressPolicy.String()).
		Msg("config.Load ok")
	return dep, nil
}

func decodeTOML(path string, out *fileConfig) error {
	meta, err := toml.DecodeFile(path, out)
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}
	if meta.IsDefined("byte_order") && strings.TrimSpace(out.ByteOrder) == "" {
		return fmt.Errorf("config parse failed (%s): byte_order is empty", path)
	}
	return nil
}

func decodeYAML(path string, out *fileConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func resolve(raw fileConfig) (Deployment, error) {
	order, err := ParseByteOrder(raw.ByteOrder)
	if err != nil {
		return Deployment{}, err
	}
	policy, err := manifest.ParseAddressPolicy(raw.AddressPolicy)
	if err != nil {
		return Deployment{}, err
	}
	entries := make([]manifest.Descriptor, 0, len(raw.Streams))
	for i, sc := range raw.Streams {
		d, err := sc.descriptor()
		if err != nil {
			return Deployment{}, fmt.Errorf("streams[%d] invalid: %w", i, err)
		}
		entries = append(entries, d)
	}
	table, err := manifest.Build(entries, manifest.WithAddressPolicy(policy))
	if err != nil {
		return Deployment{}, err
	}
	return Deployment{ByteOrder: order, AddressPolicy: policy, Manifest: table}, nil
}

func (sc streamConfig) descriptor() (manifest.Descriptor, error) {
	dst, err := manifest.ParseAddr(sc.Dst)
	if err != nil {
		return manifest.Descriptor{}, err
	}
	class, err := manifest.ParseTrafficClass(sc.Class)
	if err != nil {
		return manifest.Descriptor{}, err
	}
	kind, err := layout.ParseKind(sc.Kind)
	if err != nil {
		return manifest.Descriptor{}, err
	}
	size := layout.EncodedSize(kind)
	if sc.PayloadSize != nil {
		size = *sc.PayloadSize
	}
	return manifest.Descriptor{
		Name:        strings.TrimSpace(sc.Name),
		StreamID:    sc.StreamID,
		Dst:         dst,
		Class:       class,
		Kind:        kind,
		PayloadSize: size,
		Freq:        sc.Freq,
	}, nil
}

// ParseByteOrder maps a deployment byte_order value. Empty selects payload.DefaultOrder.
func ParseByteOrder(raw string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return payload.DefaultOrder, nil
	case "little", "le", "little-endian":
		return binary.LittleEndian, nil
	case "big", "be", "big-endian", "network":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte_order %q", raw)
	}
}

func byteOrderName(order binary.ByteOrder) string {
	if order == binary.BigEndian {
		return "big"
	}
	return "little"
}
