package att

import (
	"bytes"
	"testing"
)

func TestShouldFragment(t *testing.T) {
	if ShouldFragment(23, make([]byte, 20)) {
		t.Fatal("20 bytes fits in a 23-byte MTU write")
	}
	if !ShouldFragment(23, make([]byte, 21)) {
		t.Fatal("21 bytes does not fit in a 23-byte MTU write")
	}
}

func TestFragmentWriteAndReassemble(t *testing.T) {
	value := bytes.Repeat([]byte{0xAB}, 100)
	reqs, err := FragmentWrite(0x0020, value, 23)
	if err != nil {
		t.Fatal(err)
	}

	frag := NewFragmenter()
	for _, req := range reqs {
		if err := frag.AddPrepareWriteResponse(&PrepareWriteResponse{
			Handle: req.Handle,
			Offset: req.Offset,
			Value:  req.Value,
		}); err != nil {
			t.Fatal(err)
		}
	}

	if !bytes.Equal(frag.Reassembled(), value) {
		t.Fatalf("reassembled value does not match original (got %d bytes, want %d)", len(frag.Reassembled()), len(value))
	}
}

func TestFragmentWriteRejectsValueThatFits(t *testing.T) {
	if _, err := FragmentWrite(1, make([]byte, 10), 23); err == nil {
		t.Fatal("expected error fragmenting a value that fits in one PDU")
	}
}

func TestAddPrepareWriteResponseRejectsOffsetMismatch(t *testing.T) {
	frag := NewFragmenter()
	if err := frag.AddPrepareWriteResponse(&PrepareWriteResponse{Offset: 5, Value: []byte{1}}); err == nil {
		t.Fatal("expected error for non-zero first offset")
	}
}
