package att

import (
	"encoding/binary"
	"fmt"
)

// ExecuteWriteRequest.Flags values.
const (
	ExecuteWriteCancel  = 0x00
	ExecuteWriteExecute = 0x01
)

type ExchangeMTURequest struct{ ClientRxMTU uint16 }
type ExchangeMTUResponse struct{ ServerRxMTU uint16 }

// ErrorResponse is ATT_ERROR_RSP. Its body is also carried by Error for
// callers that want a Go error rather than a decoded packet.
type ErrorResponse struct {
	RequestOpcode uint8
	Handle        Handle
	ErrorCode     uint8
}

type FindInformationRequest struct {
	StartHandle, EndHandle Handle
}

// FindInformationResponse.Format: 0x01 = 16-bit UUIDs, 0x02 = 128-bit.
type FindInformationResponse struct {
	Format uint8
	Data   []byte
}

type FindByTypeValueRequest struct {
	StartHandle, EndHandle Handle
	Type                   uint16 // attribute type, always a 16-bit UUID on the wire
	Value                  []byte
}

// FindByTypeValueResponse.Data is a flat list of (Found Handle:2,
// Group End Handle:2) pairs.
type FindByTypeValueResponse struct {
	Data []byte
}

type ReadByTypeRequest struct {
	StartHandle, EndHandle Handle
	Type                   []byte // 2 or 16 byte UUID
}

type ReadByTypeResponse struct {
	Length        uint8
	AttributeData []byte
}

type ReadRequest struct{ Handle Handle }
type ReadResponse struct{ Value []byte }

type ReadBlobRequest struct {
	Handle Handle
	Offset uint16
}
type ReadBlobResponse struct{ Value []byte }

// ReadMultipleRequest.Handles must contain at least two handles.
type ReadMultipleRequest struct{ Handles []Handle }

// ReadMultipleResponse.Values is the flat concatenation of every
// attribute's value with no per-value length prefix.
type ReadMultipleResponse struct{ Values []byte }

type ReadByGroupTypeRequest struct {
	StartHandle, EndHandle Handle
	Type                   []byte
}

type ReadByGroupTypeResponse struct {
	Length        uint8
	AttributeData []byte
}

type WriteRequest struct {
	Handle Handle
	Value  []byte
}
type WriteResponse struct{}

type WriteCommand struct {
	Handle Handle
	Value  []byte
}

// SignedWriteCommand carries a 12-byte authentication signature. This
// module never constructs one with a real signature — see
// gatt.ErrSignedWriteUnsupported — but decodes/encodes the shape so the
// wire layer stays complete.
type SignedWriteCommand struct {
	Handle    Handle
	Value     []byte
	Signature [12]byte
}

type PrepareWriteRequest struct {
	Handle Handle
	Offset uint16
	Value  []byte
}
type PrepareWriteResponse struct {
	Handle Handle
	Offset uint16
	Value  []byte
}

type ExecuteWriteRequest struct{ Flags uint8 }
type ExecuteWriteResponse struct{}

type HandleValueNotification struct {
	Handle Handle
	Value  []byte
}
type HandleValueIndication struct {
	Handle Handle
	Value  []byte
}
type HandleValueConfirmation struct{}

// EncodePacket serializes a PDU struct (one of the types above) to its
// wire bytes, opcode byte first.
func EncodePacket(pkt interface{}) ([]byte, error) {
	switch p := pkt.(type) {
	case *ExchangeMTURequest:
		buf := make([]byte, 3)
		buf[0] = OpExchangeMTURequest
		binary.LittleEndian.PutUint16(buf[1:3], p.ClientRxMTU)
		return buf, nil

	case *ExchangeMTUResponse:
		buf := make([]byte, 3)
		buf[0] = OpExchangeMTUResponse
		binary.LittleEndian.PutUint16(buf[1:3], p.ServerRxMTU)
		return buf, nil

	case *ErrorResponse:
		buf := make([]byte, 5)
		buf[0] = OpErrorResponse
		buf[1] = p.RequestOpcode
		binary.LittleEndian.PutUint16(buf[2:4], uint16(p.Handle))
		buf[4] = p.ErrorCode
		return buf, nil

	case *FindInformationRequest:
		buf := make([]byte, 5)
		buf[0] = OpFindInformationRequest
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.StartHandle))
		binary.LittleEndian.PutUint16(buf[3:5], uint16(p.EndHandle))
		return buf, nil

	case *FindInformationResponse:
		buf := make([]byte, 2+len(p.Data))
		buf[0] = OpFindInformationResponse
		buf[1] = p.Format
		copy(buf[2:], p.Data)
		return buf, nil

	case *FindByTypeValueRequest:
		buf := make([]byte, 7+len(p.Value))
		buf[0] = OpFindByTypeValueRequest
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.StartHandle))
		binary.LittleEndian.PutUint16(buf[3:5], uint16(p.EndHandle))
		binary.LittleEndian.PutUint16(buf[5:7], p.Type)
		copy(buf[7:], p.Value)
		return buf, nil

	case *FindByTypeValueResponse:
		buf := make([]byte, 1+len(p.Data))
		buf[0] = OpFindByTypeValueResponse
		copy(buf[1:], p.Data)
		return buf, nil

	case *ReadByTypeRequest:
		buf := make([]byte, 5+len(p.Type))
		buf[0] = OpReadByTypeRequest
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.StartHandle))
		binary.LittleEndian.PutUint16(buf[3:5], uint16(p.EndHandle))
		copy(buf[5:], p.Type)
		return buf, nil

	case *ReadByTypeResponse:
		buf := make([]byte, 2+len(p.AttributeData))
		buf[0] = OpReadByTypeResponse
		buf[1] = p.Length
		copy(buf[2:], p.AttributeData)
		return buf, nil

	case *ReadRequest:
		buf := make([]byte, 3)
		buf[0] = OpReadRequest
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.Handle))
		return buf, nil

	case *ReadResponse:
		buf := make([]byte, 1+len(p.Value))
		buf[0] = OpReadResponse
		copy(buf[1:], p.Value)
		return buf, nil

	case *ReadBlobRequest:
		buf := make([]byte, 5)
		buf[0] = OpReadBlobRequest
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.Handle))
		binary.LittleEndian.PutUint16(buf[3:5], p.Offset)
		return buf, nil

	case *ReadBlobResponse:
		buf := make([]byte, 1+len(p.Value))
		buf[0] = OpReadBlobResponse
		copy(buf[1:], p.Value)
		return buf, nil

	case *ReadMultipleRequest:
		if len(p.Handles) < 2 {
			return nil, fmt.Errorf("att: ReadMultipleRequest needs at least 2 handles, got %d", len(p.Handles))
		}
		buf := make([]byte, 1+2*len(p.Handles))
		buf[0] = OpReadMultipleRequest
		for i, h := range p.Handles {
			binary.LittleEndian.PutUint16(buf[1+2*i:3+2*i], uint16(h))
		}
		return buf, nil

	case *ReadMultipleResponse:
		buf := make([]byte, 1+len(p.Values))
		buf[0] = OpReadMultipleResponse
		copy(buf[1:], p.Values)
		return buf, nil

	case *ReadByGroupTypeRequest:
		buf := make([]byte, 5+len(p.Type))
		buf[0] = OpReadByGroupTypeRequest
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.StartHandle))
		binary.LittleEndian.PutUint16(buf[3:5], uint16(p.EndHandle))
		copy(buf[5:], p.Type)
		return buf, nil

	case *ReadByGroupTypeResponse:
		buf := make([]byte, 2+len(p.AttributeData))
		buf[0] = OpReadByGroupTypeResponse
		buf[1] = p.Length
		copy(buf[2:], p.AttributeData)
		return buf, nil

	case *WriteRequest:
		buf := make([]byte, 3+len(p.Value))
		buf[0] = OpWriteRequest
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.Handle))
		copy(buf[3:], p.Value)
		return buf, nil

	case *WriteResponse:
		return []byte{OpWriteResponse}, nil

	case *WriteCommand:
		buf := make([]byte, 3+len(p.Value))
		buf[0] = OpWriteCommand
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.Handle))
		copy(buf[3:], p.Value)
		return buf, nil

	case *SignedWriteCommand:
		buf := make([]byte, 3+len(p.Value)+12)
		buf[0] = OpSignedWriteCommand
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.Handle))
		copy(buf[3:3+len(p.Value)], p.Value)
		copy(buf[3+len(p.Value):], p.Signature[:])
		return buf, nil

	case *PrepareWriteRequest:
		buf := make([]byte, 5+len(p.Value))
		buf[0] = OpPrepareWriteRequest
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.Handle))
		binary.LittleEndian.PutUint16(buf[3:5], p.Offset)
		copy(buf[5:], p.Value)
		return buf, nil

	case *PrepareWriteResponse:
		buf := make([]byte, 5+len(p.Value))
		buf[0] = OpPrepareWriteResponse
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.Handle))
		binary.LittleEndian.PutUint16(buf[3:5], p.Offset)
		copy(buf[5:], p.Value)
		return buf, nil

	case *ExecuteWriteRequest:
		return []byte{OpExecuteWriteRequest, p.Flags}, nil

	case *ExecuteWriteResponse:
		return []byte{OpExecuteWriteResponse}, nil

	case *HandleValueNotification:
		buf := make([]byte, 3+len(p.Value))
		buf[0] = OpHandleValueNotification
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.Handle))
		copy(buf[3:], p.Value)
		return buf, nil

	case *HandleValueIndication:
		buf := make([]byte, 3+len(p.Value))
		buf[0] = OpHandleValueIndication
		binary.LittleEndian.PutUint16(buf[1:3], uint16(p.Handle))
		copy(buf[3:], p.Value)
		return buf, nil

	case *HandleValueConfirmation:
		return []byte{OpHandleValueConfirmation}, nil

	default:
		return nil, fmt.Errorf("att: unknown packet type %T", pkt)
	}
}

// DecodePacket parses a PDU's wire bytes (opcode byte first) into one
// of the PDU struct types above.
func DecodePacket(data []byte) (interface{}, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("att: empty packet")
	}
	opcode := data[0]

	switch opcode {
	case OpExchangeMTURequest:
		if len(data) < 3 {
			return nil, shortPacketErr(opcode, 3, len(data))
		}
		return &ExchangeMTURequest{ClientRxMTU: binary.LittleEndian.Uint16(data[1:3])}, nil

	case OpExchangeMTUResponse:
		if len(data) < 3 {
			return nil, shortPacketErr(opcode, 3, len(data))
		}
		return &ExchangeMTUResponse{ServerRxMTU: binary.LittleEndian.Uint16(data[1:3])}, nil

	case OpErrorResponse:
		if len(data) < 5 {
			return nil, shortPacketErr(opcode, 5, len(data))
		}
		return &ErrorResponse{
			RequestOpcode: data[1],
			Handle:        Handle(binary.LittleEndian.Uint16(data[2:4])),
			ErrorCode:     data[4],
		}, nil

	case OpFindInformationRequest:
		if len(data) < 5 {
			return nil, shortPacketErr(opcode, 5, len(data))
		}
		return &FindInformationRequest{
			StartHandle: Handle(binary.LittleEndian.Uint16(data[1:3])),
			EndHandle:   Handle(binary.LittleEndian.Uint16(data[3:5])),
		}, nil

	case OpFindInformationResponse:
		if len(data) < 2 {
			return nil, shortPacketErr(opcode, 2, len(data))
		}
		return &FindInformationResponse{Format: data[1], Data: clone(data[2:])}, nil

	case OpFindByTypeValueRequest:
		if len(data) < 7 {
			return nil, shortPacketErr(opcode, 7, len(data))
		}
		return &FindByTypeValueRequest{
			StartHandle: Handle(binary.LittleEndian.Uint16(data[1:3])),
			EndHandle:   Handle(binary.LittleEndian.Uint16(data[3:5])),
			Type:        binary.LittleEndian.Uint16(data[5:7]),
			Value:       clone(data[7:]),
		}, nil

	case OpFindByTypeValueResponse:
		return &FindByTypeValueResponse{Data: clone(data[1:])}, nil

	case OpReadByTypeRequest:
		if len(data) < 7 {
			return nil, shortPacketErr(opcode, 7, len(data))
		}
		return &ReadByTypeRequest{
			StartHandle: Handle(binary.LittleEndian.Uint16(data[1:3])),
			EndHandle:   Handle(binary.LittleEndian.Uint16(data[3:5])),
			Type:        clone(data[5:]),
		}, nil

	case OpReadByTypeResponse:
		if len(data) < 2 {
			return nil, shortPacketErr(opcode, 2, len(data))
		}
		return &ReadByTypeResponse{Length: data[1], AttributeData: clone(data[2:])}, nil

	case OpReadRequest:
		if len(data) < 3 {
			return nil, shortPacketErr(opcode, 3, len(data))
		}
		return &ReadRequest{Handle: Handle(binary.LittleEndian.Uint16(data[1:3]))}, nil

	case OpReadResponse:
		return &ReadResponse{Value: clone(data[1:])}, nil

	case OpReadBlobRequest:
		if len(data) < 5 {
			return nil, shortPacketErr(opcode, 5, len(data))
		}
		return &ReadBlobRequest{
			Handle: Handle(binary.LittleEndian.Uint16(data[1:3])),
			Offset: binary.LittleEndian.Uint16(data[3:5]),
		}, nil

	case OpReadBlobResponse:
		return &ReadBlobResponse{Value: clone(data[1:])}, nil

	case OpReadMultipleRequest:
		body := data[1:]
		if len(body)%2 != 0 || len(body) < 4 {
			return nil, fmt.Errorf("att: ReadMultipleRequest malformed (%d body bytes)", len(body))
		}
		handles := make([]Handle, len(body)/2)
		for i := range handles {
			handles[i] = Handle(binary.LittleEndian.Uint16(body[2*i : 2*i+2]))
		}
		return &ReadMultipleRequest{Handles: handles}, nil

	case OpReadMultipleResponse:
		return &ReadMultipleResponse{Values: clone(data[1:])}, nil

	case OpReadByGroupTypeRequest:
		if len(data) < 7 {
			return nil, shortPacketErr(opcode, 7, len(data))
		}
		return &ReadByGroupTypeRequest{
			StartHandle: Handle(binary.LittleEndian.Uint16(data[1:3])),
			EndHandle:   Handle(binary.LittleEndian.Uint16(data[3:5])),
			Type:        clone(data[5:]),
		}, nil

	case OpReadByGroupTypeResponse:
		if len(data) < 2 {
			return nil, shortPacketErr(opcode, 2, len(data))
		}
		return &ReadByGroupTypeResponse{Length: data[1], AttributeData: clone(data[2:])}, nil

	case OpWriteRequest:
		if len(data) < 3 {
			return nil, shortPacketErr(opcode, 3, len(data))
		}
		return &WriteRequest{Handle: Handle(binary.LittleEndian.Uint16(data[1:3])), Value: clone(data[3:])}, nil

	case OpWriteResponse:
		return &WriteResponse{}, nil

	case OpWriteCommand:
		if len(data) < 3 {
			return nil, shortPacketErr(opcode, 3, len(data))
		}
		return &WriteCommand{Handle: Handle(binary.LittleEndian.Uint16(data[1:3])), Value: clone(data[3:])}, nil

	case OpSignedWriteCommand:
		if len(data) < 3+12 {
			return nil, shortPacketErr(opcode, 15, len(data))
		}
		var sig [12]byte
		copy(sig[:], data[len(data)-12:])
		return &SignedWriteCommand{
			Handle:    Handle(binary.LittleEndian.Uint16(data[1:3])),
			Value:     clone(data[3 : len(data)-12]),
			Signature: sig,
		}, nil

	case OpPrepareWriteRequest:
		if len(data) < 5 {
			return nil, shortPacketErr(opcode, 5, len(data))
		}
		return &PrepareWriteRequest{
			Handle: Handle(binary.LittleEndian.Uint16(data[1:3])),
			Offset: binary.LittleEndian.Uint16(data[3:5]),
			Value:  clone(data[5:]),
		}, nil

	case OpPrepareWriteResponse:
		if len(data) < 5 {
			return nil, shortPacketErr(opcode, 5, len(data))
		}
		return &PrepareWriteResponse{
			Handle: Handle(binary.LittleEndian.Uint16(data[1:3])),
			Offset: binary.LittleEndian.Uint16(data[3:5]),
			Value:  clone(data[5:]),
		}, nil

	case OpExecuteWriteRequest:
		if len(data) < 2 {
			return nil, shortPacketErr(opcode, 2, len(data))
		}
		return &ExecuteWriteRequest{Flags: data[1]}, nil

	case OpExecuteWriteResponse:
		return &ExecuteWriteResponse{}, nil

	case OpHandleValueNotification:
		if len(data) < 3 {
			return nil, shortPacketErr(opcode, 3, len(data))
		}
		return &HandleValueNotification{Handle: Handle(binary.LittleEndian.Uint16(data[1:3])), Value: clone(data[3:])}, nil

	case OpHandleValueIndication:
		if len(data) < 3 {
			return nil, shortPacketErr(opcode, 3, len(data))
		}
		return &HandleValueIndication{Handle: Handle(binary.LittleEndian.Uint16(data[1:3])), Value: clone(data[3:])}, nil

	case OpHandleValueConfirmation:
		return &HandleValueConfirmation{}, nil

	default:
		return nil, fmt.Errorf("att: unknown opcode 0x%02X", opcode)
	}
}

func shortPacketErr(opcode uint8, need, got int) error {
	return fmt.Errorf("att: %s too short (need %d bytes, got %d)", OpcodeNames[opcode], need, got)
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// OpcodeOf returns the opcode a decoded or to-be-encoded PDU struct
// corresponds to. Used by the multiplexer to validate a response
// against the pending request without re-encoding it.
func OpcodeOf(pkt interface{}) (uint8, error) {
	switch pkt.(type) {
	case *ExchangeMTURequest:
		return OpExchangeMTURequest, nil
	case *ExchangeMTUResponse:
		return OpExchangeMTUResponse, nil
	case *ErrorResponse:
		return OpErrorResponse, nil
	case *FindInformationRequest:
		return OpFindInformationRequest, nil
	case *FindInformationResponse:
		return OpFindInformationResponse, nil
	case *FindByTypeValueRequest:
		return OpFindByTypeValueRequest, nil
	case *FindByTypeValueResponse:
		return OpFindByTypeValueResponse, nil
	case *ReadByTypeRequest:
		return OpReadByTypeRequest, nil
	case *ReadByTypeResponse:
		return OpReadByTypeResponse, nil
	case *ReadRequest:
		return OpReadRequest, nil
	case *ReadResponse:
		return OpReadResponse, nil
	case *ReadBlobRequest:
		return OpReadBlobRequest, nil
	case *ReadBlobResponse:
		return OpReadBlobResponse, nil
	case *ReadMultipleRequest:
		return OpReadMultipleRequest, nil
	case *ReadMultipleResponse:
		return OpReadMultipleResponse, nil
	case *ReadByGroupTypeRequest:
		return OpReadByGroupTypeRequest, nil
	case *ReadByGroupTypeResponse:
		return OpReadByGroupTypeResponse, nil
	case *WriteRequest:
		return OpWriteRequest, nil
	case *WriteResponse:
		return OpWriteResponse, nil
	case *WriteCommand:
		return OpWriteCommand, nil
	case *SignedWriteCommand:
		return OpSignedWriteCommand, nil
	case *PrepareWriteRequest:
		return OpPrepareWriteRequest, nil
	case *PrepareWriteResponse:
		return OpPrepareWriteResponse, nil
	case *ExecuteWriteRequest:
		return OpExecuteWriteRequest, nil
	case *ExecuteWriteResponse:
		return OpExecuteWriteResponse, nil
	case *HandleValueNotification:
		return OpHandleValueNotification, nil
	case *HandleValueIndication:
		return OpHandleValueIndication, nil
	case *HandleValueConfirmation:
		return OpHandleValueConfirmation, nil
	default:
		return 0, fmt.Errorf("att: unknown packet type %T", pkt)
	}
}
