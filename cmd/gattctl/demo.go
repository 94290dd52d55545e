package main

import (
	"encoding/binary"

	"github.com/user/blegatt/att"
	"github.com/user/blegatt/l2cap"
)

// Fixed attribute handles for the single demo service this peripheral
// serves: a Battery Service (0x180F) with one Battery Level
// characteristic (0x2A19, Read + Notify) and its CCCD.
const (
	demoServiceHandle    att.Handle = 0x0001
	demoCharDeclHandle   att.Handle = 0x0002
	demoCharValueHandle  att.Handle = 0x0003
	demoCCCDHandle       att.Handle = 0x0004
	demoServiceEndHandle att.Handle = demoCCCDHandle
)

var (
	demoServiceUUID = []byte{0x0F, 0x18} // 0x180F, little-endian
	demoCharUUID    = []byte{0x19, 0x2A} // 0x2A19, little-endian
)

// demoPeripheral answers ATT requests for the fixed battery-service
// profile above and, once a central subscribes, pushes a notification
// whenever its level changes. It exists purely so gattctl's
// subcommands have something real to discover/read/write/subscribe to
// without a kernel Bluetooth stack.
type demoPeripheral struct {
	conn  l2cap.Conn
	level byte

	notifyEnabled bool
}

func newDemoPeripheral(conn l2cap.Conn) *demoPeripheral {
	return &demoPeripheral{conn: conn, level: 87}
}

func (p *demoPeripheral) run() {
	for {
		pkt, err := p.conn.ReadPacket()
		if err != nil {
			return
		}
		if pkt.ChannelID != l2cap.ChannelATT {
			continue
		}
		req, err := att.DecodePacket(pkt.Payload)
		if err != nil {
			continue
		}
		if err := p.handle(req); err != nil {
			return
		}
	}
}

func (p *demoPeripheral) handle(req interface{}) error {
	switch r := req.(type) {
	case *att.ExchangeMTURequest:
		return p.reply(&att.ExchangeMTUResponse{ServerRxMTU: p.conn.LocalMTU()})

	case *att.ReadByGroupTypeRequest:
		if r.StartHandle > demoServiceHandle || r.EndHandle < demoServiceHandle {
			return p.replyError(att.OpReadByGroupTypeRequest, r.StartHandle, att.ErrAttributeNotFound)
		}
		entry := make([]byte, 0, 6)
		entry = appendHandle(entry, demoServiceHandle)
		entry = appendHandle(entry, demoServiceEndHandle)
		entry = append(entry, demoServiceUUID...)
		return p.reply(&att.ReadByGroupTypeResponse{Length: byte(len(entry)), AttributeData: entry})

	case *att.ReadByTypeRequest:
		if r.StartHandle > demoCharDeclHandle || r.EndHandle < demoCharDeclHandle {
			return p.replyError(att.OpReadByTypeRequest, r.StartHandle, att.ErrAttributeNotFound)
		}
		entry := make([]byte, 0, 7)
		entry = appendHandle(entry, demoCharDeclHandle)
		entry = append(entry, 0x12) // Read | Notify
		entry = appendHandle(entry, demoCharValueHandle)
		entry = append(entry, demoCharUUID...)
		return p.reply(&att.ReadByTypeResponse{Length: byte(len(entry)), AttributeData: entry})

	case *att.FindInformationRequest:
		if r.StartHandle > demoCCCDHandle || r.EndHandle < demoCCCDHandle {
			return p.replyError(att.OpFindInformationRequest, r.StartHandle, att.ErrAttributeNotFound)
		}
		entry := make([]byte, 0, 4)
		entry = appendHandle(entry, demoCCCDHandle)
		entry = append(entry, 0x02, 0x29) // 0x2902
		return p.reply(&att.FindInformationResponse{Format: 0x01, Data: entry})

	case *att.ReadRequest:
		switch r.Handle {
		case demoCharValueHandle:
			return p.reply(&att.ReadResponse{Value: []byte{p.level}})
		case demoCCCDHandle:
			v := uint16(0)
			if p.notifyEnabled {
				v = 1
			}
			b := make([]byte, 2)
			binary.LittleEndian.PutUint16(b, v)
			return p.reply(&att.ReadResponse{Value: b})
		default:
			return p.replyError(att.OpReadRequest, r.Handle, att.ErrInvalidHandle)
		}

	case *att.WriteRequest:
		if r.Handle != demoCCCDHandle || len(r.Value) != 2 {
			return p.replyError(att.OpWriteRequest, r.Handle, att.ErrInvalidHandle)
		}
		p.notifyEnabled = binary.LittleEndian.Uint16(r.Value)&0x0001 != 0
		return p.reply(&att.WriteResponse{})

	case *att.HandleValueConfirmation:
		return nil

	default:
		return nil
	}
}

// Notify pushes the current level as a notification if a central has
// enabled them; used by the subscribe command's demo driver.
func (p *demoPeripheral) Notify(level byte) error {
	p.level = level
	if !p.notifyEnabled {
		return nil
	}
	return p.reply(&att.HandleValueNotification{Handle: demoCharValueHandle, Value: []byte{level}})
}

func (p *demoPeripheral) reply(pdu interface{}) error {
	payload, err := att.EncodePacket(pdu)
	if err != nil {
		return err
	}
	return p.conn.WritePacket(l2cap.NewATTPacket(payload))
}

func (p *demoPeripheral) replyError(requestOpcode uint8, handle att.Handle, code uint8) error {
	return p.reply(&att.ErrorResponse{RequestOpcode: requestOpcode, Handle: handle, ErrorCode: code})
}

func appendHandle(b []byte, h att.Handle) []byte {
	v := make([]byte, 2)
	binary.LittleEndian.PutUint16(v, uint16(h))
	return append(b, v...)
}
