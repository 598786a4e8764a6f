package manifest

import "github.com/danmuck/tsnmanifest/pkg/protocol/layout"

// Reference stream names shared by the robot controller and its peers.
const (
	StreamURState    = "urstate"
	StreamURCtrl     = "urctrl"
	StreamSensorData = "sensor_data"
)

// DefaultEntries returns the reference robot-arm streams in declaration order.
func DefaultEntries() []Descriptor {
	return []Descriptor{
		{
			Name:        StreamURState,
			StreamID:    1,
			Dst:         Addr{0x01, 0x00, 0x5E, 0x00, 0xFE, 0x01},
			Class:       ClassA,
			Kind:        layout.KindStateReport,
			PayloadSize: layout.EncodedSize(layout.KindStateReport),
			Freq:        500,
		},
		{
			Name:        StreamURCtrl,
			StreamID:    2,
			Dst:         Addr{0x01, 0x00, 0x5E, 0x00, 0xFE, 0x02},
			Class:       ClassA,
			Kind:        layout.KindControlCommand,
			PayloadSize: layout.EncodedSize(layout.KindControlCommand),
			Freq:        500,
		},
		{
			Name:        StreamSensorData,
			StreamID:    3,
			Dst:         Addr{0x01, 0x00, 0x5E, 0x01, 0x11, 0x03},
			Class:       ClassA,
			Kind:        layout.KindSensorSample,
			PayloadSize: layout.EncodedSize(layout.KindSensorSample),
			Freq:        10,
		},
	}
}

// Default builds the reference manifest.
func Default() (*Table, error) {
	return Build(DefaultEntries())
}
