package gatt

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// bluetoothBaseUUID is the Bluetooth SIG base UUID; a 16-bit or 32-bit
// short UUID expands into it at bytes [0:4] before comparison or wire
// encoding (Bluetooth Core Spec Vol 3, Part B, 2.5.1).
var bluetoothBaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805F9B34FB")

// UUID is a GATT attribute type or instance UUID. It is always carried
// in its expanded 128-bit form internally; On-the-wire encoding picks
// the shortest representation (2 bytes when the UUID is in the
// Bluetooth base range - its low 96 bits match the base UUID and its
// top 16 bits are zero - and 16 bytes otherwise).
type UUID struct {
	id uuid.UUID
}

// UUID16 constructs a UUID from its 16-bit Bluetooth SIG short form.
func UUID16(v uint16) UUID {
	u := bluetoothBaseUUID
	binary.BigEndian.PutUint16(u[2:4], v)
	return UUID{id: u}
}

// UUID32 constructs a UUID from its 32-bit Bluetooth SIG short form.
func UUID32(v uint32) UUID {
	u := bluetoothBaseUUID
	binary.BigEndian.PutUint32(u[0:4], v)
	return UUID{id: u}
}

// ParseUUID parses a UUID from wire bytes: 2 bytes (little-endian
// 16-bit short form) or 16 bytes (little-endian 128-bit form, as ATT
// transmits UUIDs byte-reversed from the RFC 4122 string form).
func ParseUUID(b []byte) (UUID, error) {
	switch len(b) {
	case 2:
		return UUID16(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return UUID32(binary.LittleEndian.Uint32(b)), nil
	case 16:
		var rev [16]byte
		for i := 0; i < 16; i++ {
			rev[i] = b[15-i]
		}
		u, err := uuid.FromBytes(rev[:])
		if err != nil {
			return UUID{}, fmt.Errorf("gatt: invalid UUID bytes: %w", err)
		}
		return UUID{id: u}, nil
	default:
		return UUID{}, fmt.Errorf("gatt: invalid UUID length %d", len(b))
	}
}

// MustParseUUID parses s (a hyphenated 128-bit UUID or a bare 4-character
// 16-bit hex short form such as "2902") or panics. For use with
// compile-time-known UUIDs.
func MustParseUUID(s string) UUID {
	if len(s) == 4 {
		var v uint16
		if _, err := fmt.Sscanf(s, "%04x", &v); err != nil {
			panic(fmt.Sprintf("gatt: invalid short UUID %q: %v", s, err))
		}
		return UUID16(v)
	}
	return UUID{id: uuid.MustParse(s)}
}

// Is16Bit reports whether u falls in the Bluetooth base UUID range and
// can be represented on the wire in its 2-byte short form.
func (u UUID) Is16Bit() bool {
	var base [16]byte = u.id
	binary.BigEndian.PutUint16(base[2:4], 0)
	return base == [16]byte(bluetoothBaseUUID)
}

// Short16 returns the 16-bit short form and true if Is16Bit, else
// (0, false).
func (u UUID) Short16() (uint16, bool) {
	if !u.Is16Bit() {
		return 0, false
	}
	return binary.BigEndian.Uint16(u.id[2:4]), true
}

// Bytes returns the little-endian wire encoding: 2 bytes if Is16Bit,
// else the full 16-byte reversed form ATT uses for 128-bit UUIDs.
func (u UUID) Bytes() []byte {
	if v, ok := u.Short16(); ok {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v)
		return b
	}
	b := make([]byte, 16)
	for i := 0; i < 16; i++ {
		b[i] = u.id[15-i]
	}
	return b
}

// Equal reports whether two UUIDs identify the same attribute type.
func (u UUID) Equal(other UUID) bool { return u.id == other.id }

func (u UUID) String() string { return u.id.String() }

// Well-known GATT declaration and descriptor UUIDs (Bluetooth Assigned
// Numbers).
var (
	UUIDPrimaryService   = UUID16(0x2800)
	UUIDSecondaryService = UUID16(0x2801)
	UUIDInclude          = UUID16(0x2802)
	UUIDCharacteristic   = UUID16(0x2803)

	UUIDCharExtendedProperties  = UUID16(0x2900)
	UUIDCharUserDescription     = UUID16(0x2901)
	UUIDClientCharConfig        = UUID16(0x2902) // CCCD
	UUIDServerCharConfig        = UUID16(0x2903)
	UUIDCharPresentationFormat  = UUID16(0x2904)
	UUIDCharAggregateFormat     = UUID16(0x2905)
)
