// Package layout is the registry of packed payload layouts.
//
// Each kind maps to an ordered offset table with no padding; offsets and sizes
// here are the wire contract and never follow Go struct layout.
package layout

import (
	"fmt"
	"slices"
	"strings"
)

// Kind identifies one payload message type.
type Kind uint8

// Payload kinds from the stream contract. Zero is never registered.
const (
	KindStateReport    Kind = 1
	KindControlCommand Kind = 2
	KindSensorSample   Kind = 3
)

// Type is the semantic wire type of a field element.
type Type uint8

const (
	// TypeU64 is an unsigned 64-bit integer, 8 bytes.
	TypeU64 Type = 1
	// TypeI32 is a two's complement 32-bit integer, 4 bytes.
	TypeI32 Type = 2
	// TypeF64 is an IEEE 754 binary64 float, 8 bytes.
	TypeF64 Type = 3
)

// Size returns the encoded width of one element of t.
func (t Type) Size() int {
	switch t {
	case TypeU64, TypeF64:
		return 8
	case TypeI32:
		return 4
	default:
		return 0
	}
}

func (t Type) String() string {
	switch t {
	case TypeU64:
		return "u64"
	case TypeI32:
		return "i32"
	case TypeF64:
		return "f64"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Joint slots of a joint-space array. End is a marker that still occupies wire space.
const (
	JointBase = iota
	JointShoulder
	JointElbow
	JointWrist1
	JointWrist2
	JointWrist3
	JointEnd

	// JointSlots is the fixed element count of every joint-space array.
	JointSlots = JointEnd + 1
)

// Field is one entry of a layout's offset table.
type Field struct {
	Name   string
	Type   Type
	Count  int
	Offset int
	Width  int
}

// Layout is the packed field table of one payload kind.
type Layout struct {
	Kind   Kind
	Name   string
	Fields []Field
	Size   int
}

// Field returns the named field.
func (l Layout) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

type requirement struct {
	name  string
	typ   Type
	count int
}

var requirements = map[Kind][]requirement{
	KindStateReport: {
		{"seq", TypeU64, 1},
		{"timestamp_ns", TypeU64, 1},
		{"source_ts", TypeF64, 1},
		{"target_q", TypeF64, JointSlots},
		{"actual_q", TypeF64, JointSlots},
		{"actual_tcp_pose", TypeF64, JointSlots},
		{"actual_tcp_speed", TypeF64, JointSlots},
	},
	KindControlCommand: {
		{"seq", TypeU64, 1},
		{"cmd", TypeI32, 1},
		{"reserved", TypeI32, 1},
		{"target_qd", TypeF64, JointSlots},
	},
	KindSensorSample: {
		{"sent_ns", TypeU64, 1},
		{"received_ns", TypeU64, 1},
		{"data", TypeU64, 1},
		{"seq", TypeU64, 1},
	},
}

var kindNames = map[Kind]string{
	KindStateReport:    "state_report",
	KindControlCommand: "control_command",
	KindSensorSample:   "sensor_sample",
}

// registry is resolved once at init and never written again.
var registry = buildRegistry()

func buildRegistry() map[Kind]Layout {
	out := make(map[Kind]Layout, len(requirements))
	for kind, reqs := range requirements {
		out[kind] = pack(kind, reqs)
	}
	return out
}

// pack assigns offsets back to back. There is no alignment step.
func pack(kind Kind, reqs []requirement) Layout {
	fields := make([]Field, 0, len(reqs))
	offset := 0
	for _, req := range reqs {
		width := req.typ.Size() * req.count
		fields = append(fields, Field{
			Name:   req.name,
			Type:   req.typ,
			Count:  req.count,
			Offset: offset,
			Width:  width,
		})
		offset += width
	}
	return Layout{Kind: kind, Name: kindNames[kind], Fields: fields, Size: offset}
}

// Lookup returns a copy of the layout registered for kind.
func Lookup(kind Kind) (Layout, bool) {
	l, ok := registry[kind]
	if !ok {
		return Layout{}, false
	}
	l.Fields = slices.Clone(l.Fields)
	return l, true
}

// EncodedSize returns the fixed byte length of kind, or 0 if kind is not registered.
func EncodedSize(kind Kind) int {
	return registry[kind].Size
}

// Fields returns the ordered offset table of kind.
func Fields(kind Kind) []Field {
	return slices.Clone(registry[kind].Fields)
}

// Kinds returns every registered kind in ascending order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for kind := range registry {
		out = append(out, kind)
	}
	slices.Sort(out)
	return out
}

// Registered reports whether kind has a layout.
func (k Kind) Registered() bool {
	_, ok := registry[k]
	return ok
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind accepts the snake_case name or the CamelCase type name of a kind.
func ParseKind(raw string) (Kind, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "_", ""))
	for kind, name := range kindNames {
		if strings.ReplaceAll(name, "_", "") == key {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("layout: unknown payload kind %q", raw)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Registered() {
		return nil, fmt.Errorf("layout: unknown payload kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
