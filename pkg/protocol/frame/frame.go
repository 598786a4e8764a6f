// Package frame tags stream payloads for transport.
//
// A frame is a 16-byte big-endian header (magic, version, traffic class,
// stream_id, payload length) followed by the packed payload. Readers check
// the header against the manifest before accepting the payload.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/tsnmanifest/internal/observability"
	"github.com/danmuck/tsnmanifest/pkg/manifest"
	"github.com/rs/zerolog/log"
)

const (
	FixedHeaderLen        = 16
	Magic          uint16 = 0x7353
	Version        uint8  = 1
)

var (
	ErrShortHeader   = errors.New("frame: short fixed header")
	ErrInvalidMagic  = errors.New("frame: invalid magic")
	ErrVersion       = errors.New("frame: unsupported version")
	ErrUnknownStream = errors.New("frame: unknown stream_id")
	ErrClassMismatch = errors.New("frame: traffic class does not match manifest")
	ErrPayloadSize   = errors.New("frame: payload size does not match manifest")
	ErrShortPayload  = errors.New("frame: short payload")
)

// Header is the fixed tag in front of every stream payload.
type Header struct {
	Magic      uint16
	Version    uint8
	Class      manifest.TrafficClass
	StreamID   uint64
	PayloadLen uint32
}

// Frame is one tagged stream payload.
type Frame struct {
	Header  Header
	Stream  manifest.Descriptor
	Payload []byte
}

// WriteFrame tags payload with the stream's id and class and writes it to w.
func WriteFrame(w io.Writer, d manifest.Descriptor, payload []byte) error {
	if len(payload) != d.PayloadSize {
		observability.RecordFrameRejected(d.Name, "payload_size")
		log.Warn().Str("stream", d.Name).Int("got", len(payload)).Int("want", d.PayloadSize).
			Msg("frame.WriteFrame rejected payload")
		return fmt.Errorf("%w: stream=%s got=%d want=%d", ErrPayloadSize, d.Name, len(payload), d.PayloadSize)
	}
	h := Header{
		Magic:      Magic,
		Version:    Version,
		Class:      d.Class,
		StreamID:   d.StreamID,
		PayloadLen: uint32(len(payload)),
	}
	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	observability.RecordFrameEncoded(d.Name)
	return nil
}

// ReadFrame reads one frame and resolves its stream against table.
func ReadFrame(r io.Reader, table *manifest.Table) (Frame, error) {
	var fixed [FixedHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if h.Magic != Magic {
		return Frame{}, ErrInvalidMagic
	}
	if h.Version != Version {
		return Frame{}, ErrVersion
	}

	d, err := table.LookupID(h.StreamID)
	if err != nil {
		observability.RecordFrameRejected("unknown", "unknown_stream")
		return Frame{}, fmt.Errorf("%w: %d", ErrUnknownStream, h.StreamID)
	}
	if h.Class != d.Class {
		observability.RecordFrameRejected(d.Name, "class")
		return Frame{}, fmt.Errorf("%w: stream=%s got=%s want=%s", ErrClassMismatch, d.Name, h.Class, d.Class)
	}
	if int(h.PayloadLen) != d.PayloadSize {
		observability.RecordFrameRejected(d.Name, "payload_size")
		return Frame{}, fmt.Errorf("%w: stream=%s got=%d want=%d", ErrPayloadSize, d.Name, h.PayloadLen, d.PayloadSize)
	}

	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return Frame{}, ErrShortPayload
			}
			return Frame{}, err
		}
	}
	return Frame{Header: h, Stream: d, Payload: payload}, nil
}

// EncodeHeader lays h out in network byte order.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, FixedHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], h.Magic)
	buf[2] = h.Version
	buf[3] = byte(h.Class)
	binary.BigEndian.PutUint64(buf[4:12], h.StreamID)
	binary.BigEndian.PutUint32(buf[12:16], h.PayloadLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != FixedHeaderLen {
		return Header{}, fmt.Errorf("frame: invalid fixed header length: %d", len(b))
	}
	return Header{
		Magic:      binary.BigEndian.Uint16(b[0:2]),
		Version:    b[2],
		Class:      manifest.TrafficClass(b[3]),
		StreamID:   binary.BigEndian.Uint64(b[4:12]),
		PayloadLen: binary.BigEndian.Uint32(b[12:16]),
	}, nil
}
