package manifest

import (
	"testing"

	"github.com/danmuck/tsnmanifest/internal/testutil/testlog"
)

func TestParseAddr(t *testing.T) {
	testlog.Start(t)
	a, err := ParseAddr("01:00:5e:00:fe:01")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a != (Addr{0x01, 0x00, 0x5E, 0x00, 0xFE, 0x01}) {
		t.Fatalf("unexpected addr: %v", a)
	}
	if a.String() != "01:00:5E:00:FE:01" {
		t.Fatalf("unexpected string: %s", a)
	}
	if _, err := ParseAddr("01-00-5E-00-FE-02"); err != nil {
		t.Fatalf("dash form: %v", err)
	}
	if _, err := ParseAddr("01:00:5e"); err == nil {
		t.Fatalf("expected short address error")
	}
	if _, err := ParseAddr("02:00:5e:10:00:00:00:01"); err == nil {
		t.Fatalf("expected EUI-64 to be rejected")
	}
}

func TestAddrRanges(t *testing.T) {
	testlog.Start(t)
	ipv4 := Addr{0x01, 0x00, 0x5E, 0x7F, 0xFF, 0xFF}
	if !ipv4.IsMulticast() || !ipv4.IsIPv4Mapped() || ipv4.IsMAAP() {
		t.Fatalf("unexpected classification for %s", ipv4)
	}
	maap := Addr{0x91, 0xE0, 0xF0, 0x00, 0x00, 0x01}
	if !maap.IsMulticast() || maap.IsIPv4Mapped() || !maap.IsMAAP() {
		t.Fatalf("unexpected classification for %s", maap)
	}
	if PolicyIPv4Mapped.allows(maap) || !PolicyMAAP.allows(maap) || !PolicyAny.allows(ipv4) {
		t.Fatalf("policy mismatch")
	}
}

func TestAddrTextRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := Addr{0x91, 0xE0, 0xF0, 0x00, 0xFE, 0x03}
	text, _ := in.MarshalText()
	var out Addr
	if err := out.UnmarshalText(text); err != nil || out != in {
		t.Fatalf("text round trip: %v %v", out, err)
	}
}

func TestParsePolicyAndClass(t *testing.T) {
	testlog.Start(t)
	if p, err := ParseAddressPolicy("ipv4-mapped"); err != nil || p != PolicyIPv4Mapped {
		t.Fatalf("policy: %v %v", p, err)
	}
	if p, err := ParseAddressPolicy(""); err != nil || p != PolicyAny {
		t.Fatalf("default policy: %v %v", p, err)
	}
	if _, err := ParseAddressPolicy("everything"); err == nil {
		t.Fatalf("expected policy error")
	}
	for raw, want := range map[string]TrafficClass{"A": ClassA, "class_b": ClassB, "Class A": ClassA} {
		got, err := ParseTrafficClass(raw)
		if err != nil || got != want {
			t.Fatalf("ParseTrafficClass(%q) = %v,%v", raw, got, err)
		}
	}
	if _, err := ParseTrafficClass("C"); err == nil {
		t.Fatalf("expected class error")
	}
}
