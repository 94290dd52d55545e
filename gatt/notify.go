package gatt

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/user/blegatt/att"
)

// CCCD configuration bits; this client only ever writes these two bits
// (the upper 14 are reserved).
const (
	cccdNotificationBit = 0x0001
	cccdIndicationBit   = 0x0002
)

// NotificationHandler is invoked for every value a subscribed
// characteristic delivers. isIndication distinguishes an acknowledged
// indication (confirmation already sent by the time this runs) from a
// best-effort notification.
type NotificationHandler func(value []byte, isIndication bool)

// subscriptionSink fans inbound HANDLE_VALUE_NOTIFICATION/INDICATION
// PDUs out to per-characteristic handlers by value handle.
type subscriptionSink struct {
	mu       sync.RWMutex
	handlers map[att.Handle]NotificationHandler
}

func newSubscriptionSink() *subscriptionSink {
	return &subscriptionSink{handlers: make(map[att.Handle]NotificationHandler)}
}

func (s *subscriptionSink) set(handle att.Handle, fn NotificationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		delete(s.handlers, handle)
		return
	}
	s.handlers[handle] = fn
}

// dispatch is called synchronously from the multiplexer's read loop
// (for an indication, after its confirmation has already been written).
// It must not block on anything the handler itself might wait on.
func (s *subscriptionSink) dispatch(pdu interface{}) {
	var handle att.Handle
	var value []byte
	var isIndication bool

	switch p := pdu.(type) {
	case *att.HandleValueNotification:
		handle, value = p.Handle, p.Value
	case *att.HandleValueIndication:
		handle, value, isIndication = p.Handle, p.Value, true
	default:
		return
	}

	s.mu.RLock()
	fn := s.handlers[handle]
	s.mu.RUnlock()
	if fn != nil {
		fn(value, isIndication)
	}
}

// encodeCCCDValue builds the 2-byte little-endian CCCD value for the
// requested subscription mode.
func encodeCCCDValue(notify, indicate bool) []byte {
	var v uint16
	if notify {
		v |= cccdNotificationBit
	}
	if indicate {
		v |= cccdIndicationBit
	}
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func decodeCCCDValue(b []byte) (notify, indicate bool, err error) {
	if len(b) != 2 {
		return false, false, fmt.Errorf("gatt: invalid CCCD value length %d", len(b))
	}
	v := binary.LittleEndian.Uint16(b)
	return v&cccdNotificationBit != 0, v&cccdIndicationBit != 0, nil
}

// findCCCD discovers ch's descriptors and returns the one that is the
// Client Characteristic Configuration Descriptor. If none exists, it
// fails with ConfigurationNotAllowedError, since there is then nothing
// a notify/indicate subscription could write to.
func findCCCD(ctx context.Context, disc *discoveryEngine, ch Characteristic) (Descriptor, error) {
	descs, err := disc.discoverDescriptors(ctx, ch)
	if err != nil {
		return Descriptor{}, err
	}
	for _, d := range descs {
		if d.UUID.Equal(UUIDClientCharConfig) {
			return d, nil
		}
	}
	return Descriptor{}, &ConfigurationNotAllowedError{Characteristic: ch.UUID}
}

// setSubscription writes the CCCD at cccd.Handle with the encoded
// notify/indicate bits.
func setSubscription(ctx context.Context, mux *att.Multiplexer, cccd Descriptor, notify, indicate bool) error {
	_, err := mux.SendRequestAndAwaitResponse(ctx, att.OpWriteRequest, cccd.Handle, &att.WriteRequest{
		Handle: cccd.Handle,
		Value:  encodeCCCDValue(notify, indicate),
	})
	return err
}
