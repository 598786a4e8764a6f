package manifest

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/tsnmanifest/internal/testutil/testlog"
	"github.com/danmuck/tsnmanifest/pkg/protocol/layout"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestDefaultManifestBuilds(t *testing.T) {
	testlog.Start(t)
	table, err := Default()
	if err != nil {
		t.Fatalf("build default: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("unexpected stream count: %d", table.Len())
	}
	ctrl, err := table.Lookup(StreamURCtrl)
	if err != nil {
		t.Fatalf("lookup urctrl: %v", err)
	}
	if ctrl.StreamID != 2 {
		t.Fatalf("urctrl stream_id=%d want 2", ctrl.StreamID)
	}
	sizes := map[string]int{StreamURState: 248, StreamURCtrl: 72, StreamSensorData: 32}
	for d := range table.All() {
		if d.PayloadSize != sizes[d.Name] {
			t.Fatalf("%s payload_size=%d want %d", d.Name, d.PayloadSize, sizes[d.Name])
		}
	}
	sensor, _ := table.LookupID(3)
	if sensor.Name != StreamSensorData || sensor.Dst.String() != "01:00:5E:01:11:03" {
		t.Fatalf("unexpected sensor stream: %+v", sensor)
	}
	if sensor.Period() != 100*time.Millisecond {
		t.Fatalf("unexpected sensor period: %v", sensor.Period())
	}
	state, _ := table.Lookup(StreamURState)
	if state.Bandwidth() != 248*500 {
		t.Fatalf("unexpected state bandwidth: %d", state.Bandwidth())
	}
}

func TestBuildDuplicateStreamID(t *testing.T) {
	testlog.Start(t)
	entries := DefaultEntries()
	entries[1].StreamID = 1
	_, err := Build(entries)
	if !errors.Is(err, ErrDuplicateStreamID) {
		t.Fatalf("expected ErrDuplicateStreamID, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Index != 1 || verr.Name != StreamURCtrl {
		t.Fatalf("unexpected validation error: %#v", err)
	}
}

func TestBuildDuplicateStreamIDRegardlessOfOtherFields(t *testing.T) {
	testlog.Start(t)
	entries := DefaultEntries()
	entries[2].StreamID = 1
	entries[2].Name = StreamURState
	entries[2].Freq = 0
	entries[2].PayloadSize = 1
	entries[2].Dst = Addr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	if _, err := Build(entries); !errors.Is(err, ErrDuplicateStreamID) {
		t.Fatalf("expected ErrDuplicateStreamID, got %v", err)
	}
}

func TestBuildDuplicateName(t *testing.T) {
	testlog.Start(t)
	entries := DefaultEntries()
	entries[2].Name = StreamURState
	entries[2].Freq = -1
	if _, err := Build(entries); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestBuildSizeMismatch(t *testing.T) {
	testlog.Start(t)
	entries := DefaultEntries()
	entries[0].PayloadSize = 100
	_, err := Build(entries)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
	for _, size := range []int{0, 247, 249, 256} {
		entries[0].PayloadSize = size
		if _, err := Build(entries); !errors.Is(err, ErrSizeMismatch) {
			t.Fatalf("size %d: expected ErrSizeMismatch, got %v", size, err)
		}
	}
}

func TestBuildInvalidFrequency(t *testing.T) {
	testlog.Start(t)
	for _, freq := range []int{0, -500} {
		entries := DefaultEntries()
		entries[1].Freq = freq
		if _, err := Build(entries); !errors.Is(err, ErrInvalidFrequency) {
			t.Fatalf("freq %d: expected ErrInvalidFrequency, got %v", freq, err)
		}
	}
}

func TestBuildRejectionLogsBelowError(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	entries := DefaultEntries()
	entries[0].Freq = 0
	if _, err := Build(entries); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
	out := buf.String()
	if strings.Contains(out, `"level":"error"`) {
		t.Fatalf("rejection logged at error level: %s", out)
	}
	if zerolog.GlobalLevel() <= zerolog.DebugLevel && !strings.Contains(out, "manifest.Build rejected") {
		t.Fatalf("missing debug rejection entry: %q", out)
	}
}

func TestBuildInvalidMulticastAddress(t *testing.T) {
	testlog.Start(t)
	cases := []Addr{
		{0x00, 0x1B, 0x21, 0x00, 0x00, 0x01}, // unicast
		{0x01, 0x00, 0x5E, 0x80, 0x00, 0x01}, // outside the IPv4-mapped half
		{0x33, 0x33, 0x00, 0x00, 0x00, 0x01}, // multicast, but neither range
	}
	for _, dst := range cases {
		entries := DefaultEntries()
		entries[0].Dst = dst
		if _, err := Build(entries); !errors.Is(err, ErrInvalidMulticastAddress) {
			t.Fatalf("dst %s: expected ErrInvalidMulticastAddress, got %v", dst, err)
		}
	}
}

func TestBuildAddressPolicy(t *testing.T) {
	testlog.Start(t)
	entries := DefaultEntries()
	entries[2].Dst = Addr{0x91, 0xE0, 0xF0, 0x00, 0xFE, 0x03}

	if _, err := Build(entries); err != nil {
		t.Fatalf("any policy must accept maap range: %v", err)
	}
	if _, err := Build(entries, WithAddressPolicy(PolicyIPv4Mapped)); !errors.Is(err, ErrInvalidMulticastAddress) {
		t.Fatalf("expected ipv4-mapped policy to reject maap address, got %v", err)
	}
	_, err := Build(entries, WithAddressPolicy(PolicyMAAP))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Index != 0 {
		t.Fatalf("expected maap policy to reject first ipv4-mapped entry, got %v", err)
	}
}

func TestBuildUnknownKindAndClass(t *testing.T) {
	testlog.Start(t)
	entries := DefaultEntries()
	entries[0].Kind = 9
	if _, err := Build(entries); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	entries = DefaultEntries()
	entries[0].Class = 0
	if _, err := Build(entries); !errors.Is(err, ErrInvalidTrafficClass) {
		t.Fatalf("expected ErrInvalidTrafficClass, got %v", err)
	}
}

func TestBuildEmpty(t *testing.T) {
	testlog.Start(t)
	table, err := Build(nil)
	if err != nil {
		t.Fatalf("build empty: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table")
	}
	for range table.All() {
		t.Fatalf("empty table yielded a descriptor")
	}
}

func TestLookupNotFound(t *testing.T) {
	testlog.Start(t)
	table, _ := Default()
	if _, err := table.Lookup("urpose"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := table.LookupID(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAllIsRestartable(t *testing.T) {
	testlog.Start(t)
	table, _ := Default()
	first := slices.Collect(table.All())
	for i := 0; i < 3; i++ {
		again := slices.Collect(table.All())
		if !slices.Equal(first, again) {
			t.Fatalf("iteration %d differs: %+v vs %+v", i, again, first)
		}
	}
	want := []string{StreamURState, StreamURCtrl, StreamSensorData}
	for i, d := range first {
		if d.Name != want[i] {
			t.Fatalf("order[%d]=%s want %s", i, d.Name, want[i])
		}
	}
	for d := range table.All() {
		if d.Name != StreamURState {
			t.Fatalf("early break yielded %s", d.Name)
		}
		break
	}
}

func TestTableIsNotMutatedThroughCopies(t *testing.T) {
	testlog.Start(t)
	entries := DefaultEntries()
	table, err := Build(entries)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	entries[0].Freq = 1
	list := table.Descriptors()
	list[1].StreamID = 77
	state, _ := table.Lookup(StreamURState)
	ctrl, _ := table.Lookup(StreamURCtrl)
	if state.Freq != 500 || ctrl.StreamID != 2 {
		t.Fatalf("table mutated: state=%+v ctrl=%+v", state, ctrl)
	}
}

func TestConcurrentReaders(t *testing.T) {
	testlog.Start(t)
	table, _ := Default()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				for d := range table.All() {
					got, err := table.LookupID(d.StreamID)
					if err != nil || got.Name != d.Name {
						t.Errorf("lookup %d: %v", d.StreamID, err)
						return
					}
					if d.PayloadSize != layout.EncodedSize(d.Kind) {
						t.Errorf("size drift on %s", d.Name)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
