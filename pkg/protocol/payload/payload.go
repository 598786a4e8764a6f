// Package payload translates typed stream messages to and from their packed wire form.
//
// Every write lands on the offset published by the layout registry; the in-memory
// struct layout of the Go types is never copied to the wire.
package payload

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/danmuck/tsnmanifest/pkg/protocol/layout"
)

var (
	ErrSizeMismatch = errors.New("payload: buffer size does not match layout")
	ErrLayoutDrift  = errors.New("payload: message fields do not match layout")
	ErrNilMessage   = errors.New("payload: nil message")
)

// DefaultOrder is the byte order used when a deployment does not pick one.
var DefaultOrder binary.ByteOrder = binary.LittleEndian

// Joints is one joint-space array, End marker slot included.
type Joints [layout.JointSlots]float64

// Message is implemented by the typed payloads of this package.
type Message interface {
	Kind() layout.Kind
	put(w *cursor)
	get(r *cursor)
	isNil() bool
	// zero returns a fresh value of the same concrete type.
	zero() Message
	// assign copies v, which has the same concrete type, into the receiver.
	assign(v Message)
}

// StateReport is published by the robot controller.
type StateReport struct {
	Seq            uint64
	TimestampNS    uint64
	SourceTS       float64
	TargetQ        Joints
	ActualQ        Joints
	ActualTCPPose  Joints
	ActualTCPSpeed Joints
}

func (*StateReport) Kind() layout.Kind { return layout.KindStateReport }
func (m *StateReport) isNil() bool { return m == nil }
func (*StateReport) zero() Message { return &StateReport{} }
func (m *StateReport) assign(v Message) { *m = *v.(*StateReport) }

func (m *StateReport) put(c *cursor) {
	c.putU64(m.Seq)
	c.putU64(m.TimestampNS)
	c.putF64(m.SourceTS)
	c.putJoints(&m.TargetQ)
	c.putJoints(&m.ActualQ)
	c.putJoints(&m.ActualTCPPose)
	c.putJoints(&m.ActualTCPSpeed)
}

func (m *StateReport) get(c *cursor) {
	m.Seq = c.u64()
	m.TimestampNS = c.u64()
	m.SourceTS = c.f64()
	c.joints(&m.TargetQ)
	c.joints(&m.ActualQ)
	c.joints(&m.ActualTCPPose)
	c.joints(&m.ActualTCPSpeed)
}

// ControlCommand is sent to the robot controller.
type ControlCommand struct {
	Seq      uint64
	Cmd      int32
	Reserved int32
	TargetQD Joints
}

func (*ControlCommand) Kind() layout.Kind { return layout.KindControlCommand }
func (m *ControlCommand) isNil() bool { return m == nil }
func (*ControlCommand) zero() Message { return &ControlCommand{} }
func (m *ControlCommand) assign(v Message) { *m = *v.(*ControlCommand) }

func (m *ControlCommand) put(c *cursor) {
	c.putU64(m.Seq)
	c.putI32(m.Cmd)
	c.putI32(m.Reserved)
	c.putJoints(&m.TargetQD)
}

func (m *ControlCommand) get(c *cursor) {
	m.Seq = c.u64()
	m.Cmd = c.i32()
	m.Reserved = c.i32()
	c.joints(&m.TargetQD)
}

// SensorSample carries one sensor reading with its send/receive timestamps.
type SensorSample struct {
	SentNS     uint64
	ReceivedNS uint64
	Data       uint64
	Seq        uint64
}

func (*SensorSample) Kind() layout.Kind { return layout.KindSensorSample }
func (m *SensorSample) isNil() bool { return m == nil }
func (*SensorSample) zero() Message { return &SensorSample{} }
func (m *SensorSample) assign(v Message) { *m = *v.(*SensorSample) }

func (m *SensorSample) put(c *cursor) {
	c.putU64(m.SentNS)
	c.putU64(m.ReceivedNS)
	c.putU64(m.Data)
	c.putU64(m.Seq)
}

func (m *SensorSample) get(c *cursor) {
	m.SentNS = c.u64()
	m.ReceivedNS = c.u64()
	m.Data = c.u64()
	m.Seq = c.u64()
}

// New returns a zero message for kind.
func New(kind layout.Kind) (Message, bool) {
	switch kind {
	case layout.KindStateReport:
		return &StateReport{}, true
	case layout.KindControlCommand:
		return &ControlCommand{}, true
	case layout.KindSensorSample:
		return &SensorSample{}, true
	default:
		return nil, false
	}
}

// Codec encodes messages with a fixed byte order.
type Codec struct {
	Order binary.ByteOrder
}

func NewCodec(order binary.ByteOrder) Codec {
	if order == nil {
		order = DefaultOrder
	}
	return Codec{Order: order}
}

func (c Codec) order() binary.ByteOrder {
	if c.Order == nil {
		return DefaultOrder
	}
	return c.Order
}

// Encode returns the packed wire form of msg.
func (c Codec) Encode(msg Message) ([]byte, error) {
	if msg == nil || msg.isNil() {
		return nil, ErrNilMessage
	}
	fields := layout.Fields(msg.Kind())
	buf := make([]byte, layout.EncodedSize(msg.Kind()))
	cur := &cursor{order: c.order(), buf: buf, fields: fields}
	msg.put(cur)
	if err := cur.done(); err != nil {
		return nil, err
	}
	return buf, nil
}

// Decode fills msg from b. len(b) must equal the encoded size of msg's kind.
// msg is left unchanged when Decode returns an error.
func (c Codec) Decode(b []byte, msg Message) error {
	if msg == nil || msg.isNil() {
		return ErrNilMessage
	}
	if len(b) != layout.EncodedSize(msg.Kind()) {
		return ErrSizeMismatch
	}
	cur := &cursor{order: c.order(), buf: b, fields: layout.Fields(msg.Kind())}
	out := msg.zero()
	out.get(cur)
	if err := cur.done(); err != nil {
		return err
	}
	msg.assign(out)
	return nil
}

// cursor walks a layout's offset table one field per call.
type cursor struct {
	order  binary.ByteOrder
	buf    []byte
	fields []layout.Field
	idx    int
	drift  bool
}

// next returns the window of the next field if it has the expected shape.
func (c *cursor) next(t layout.Type, count int) []byte {
	if c.drift || c.idx >= len(c.fields) {
		c.drift = true
		return nil
	}
	f := c.fields[c.idx]
	if f.Type != t || f.Count != count || f.Offset+f.Width > len(c.buf) {
		c.drift = true
		return nil
	}
	c.idx++
	return c.buf[f.Offset : f.Offset+f.Width]
}

func (c *cursor) done() error {
	if c.drift || c.idx != len(c.fields) {
		return ErrLayoutDrift
	}
	return nil
}

func (c *cursor) putU64(v uint64) {
	if b := c.next(layout.TypeU64, 1); b != nil {
		c.order.PutUint64(b, v)
	}
}

func (c *cursor) putI32(v int32) {
	if b := c.next(layout.TypeI32, 1); b != nil {
		c.order.PutUint32(b, uint32(v))
	}
}

func (c *cursor) putF64(v float64) {
	if b := c.next(layout.TypeF64, 1); b != nil {
		c.order.PutUint64(b, math.Float64bits(v))
	}
}

func (c *cursor) putJoints(v *Joints) {
	b := c.next(layout.TypeF64, len(v))
	if b == nil {
		return
	}
	for i, x := range v {
		c.order.PutUint64(b[i*8:], math.Float64bits(x))
	}
}

func (c *cursor) u64() uint64 {
	if b := c.next(layout.TypeU64, 1); b != nil {
		return c.order.Uint64(b)
	}
	return 0
}

func (c *cursor) i32() int32 {
	if b := c.next(layout.TypeI32, 1); b != nil {
		return int32(c.order.Uint32(b))
	}
	return 0
}

func (c *cursor) f64() float64 {
	if b := c.next(layout.TypeF64, 1); b != nil {
		return math.Float64frombits(c.order.Uint64(b))
	}
	return 0
}

func (c *cursor) joints(v *Joints) {
	b := c.next(layout.TypeF64, len(v))
	if b == nil {
		return
	}
	for i := range v {
		v[i] = math.Float64frombits(c.order.Uint64(b[i*8:]))
	}
}
