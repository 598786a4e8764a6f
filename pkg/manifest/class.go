package manifest

import (
	"fmt"
	"strings"
)

// TrafficClass selects the latency/bandwidth tier of a stream.
type TrafficClass uint8

const (
	// ClassA is the bounded-latency tier (2 ms over seven hops).
	ClassA TrafficClass = 1
	// ClassB is the relaxed tier (50 ms over seven hops).
	ClassB TrafficClass = 2
)

func (c TrafficClass) Valid() bool {
	return c == ClassA || c == ClassB
}

func (c TrafficClass) String() string {
	switch c {
	case ClassA:
		return "A"
	case ClassB:
		return "B"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

func ParseTrafficClass(raw string) (TrafficClass, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	v = strings.TrimPrefix(strings.TrimPrefix(v, "CLASS_"), "CLASS ")
	switch v {
	case "A":
		return ClassA, nil
	case "B":
		return ClassB, nil
	default:
		return 0, fmt.Errorf("manifest: unknown traffic class %q", raw)
	}
}

func (c TrafficClass) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("manifest: unknown traffic class %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *TrafficClass) UnmarshalText(text []byte) error {
	v, err := ParseTrafficClass(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
