package gatt

import (
	"bytes"
	"testing"
)

func TestUUID16ShortFormRoundTrip(t *testing.T) {
	u := UUID16(0x2902)
	short, ok := u.Short16()
	if !ok || short != 0x2902 {
		t.Fatalf("got (%v, %v), want (0x2902, true)", short, ok)
	}
	if !bytes.Equal(u.Bytes(), []byte{0x02, 0x29}) {
		t.Fatalf("got %#v", u.Bytes())
	}
}

func TestParseUUIDShortForm(t *testing.T) {
	u, err := ParseUUID([]byte{0x0F, 0x18})
	if err != nil {
		t.Fatal(err)
	}
	if !u.Equal(UUID16(0x180F)) {
		t.Fatalf("got %s, want 0x180F", u)
	}
}

func TestParseUUID128BitIsNotShort(t *testing.T) {
	raw := make([]byte, 16)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	u, err := ParseUUID(raw)
	if err != nil {
		t.Fatal(err)
	}
	if u.Is16Bit() {
		t.Fatal("a 128-bit UUID outside the Bluetooth base range should not report Is16Bit")
	}
	if len(u.Bytes()) != 16 {
		t.Fatalf("got %d bytes, want 16", len(u.Bytes()))
	}
}

func TestParseUUIDRejectsInvalidLength(t *testing.T) {
	if _, err := ParseUUID([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for a 3-byte UUID")
	}
}

func TestMustParseUUIDShortForm(t *testing.T) {
	if !MustParseUUID("2902").Equal(UUID16(0x2902)) {
		t.Fatal("short-form MustParseUUID mismatch")
	}
}

func TestUUIDEqualIgnoresRepresentation(t *testing.T) {
	a := UUID16(0x180F)
	b, _ := ParseUUID(a.Bytes())
	if !a.Equal(b) {
		t.Fatal("round-tripped UUID should equal the original")
	}
}
