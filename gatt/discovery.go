package gatt

import (
	"context"
	"fmt"

	"github.com/user/blegatt/att"
)

// discoveryEngine runs the paginated handle-range walks GATT discovery
// needs: repeat the request with StartHandle advanced past the last
// result's end handle until the server answers Attribute Not Found, or
// the range is exhausted.
type discoveryEngine struct {
	mux *att.Multiplexer
}

// discoverServices walks ATT_READ_BY_GROUP_TYPE_REQ over [start, end]
// for the Primary Service declaration type.
func (d *discoveryEngine) discoverServices(ctx context.Context, start, end att.Handle, primary bool) ([]Service, error) {
	groupType := UUIDPrimaryService
	if !primary {
		groupType = UUIDSecondaryService
	}

	var out []Service
	cursor := start
	for cursor <= end {
		rsp, err := d.mux.SendRequestAndAwaitResponse(ctx, att.OpReadByGroupTypeRequest, cursor, &att.ReadByGroupTypeRequest{
			StartHandle: cursor,
			EndHandle:   end,
			Type:        groupType.Bytes(),
		})
		if err != nil {
			if att.IsError(err, att.ErrAttributeNotFound) {
				break
			}
			return nil, err
		}

		batch, lastEnd, err := parseReadByGroupTypeResponse(rsp.(*att.ReadByGroupTypeResponse), primary)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 || lastEnd < cursor {
			return nil, &InvalidResponseError{Reason: "service discovery cursor did not advance"}
		}
		out = append(out, batch...)

		if lastEnd >= end {
			break
		}
		cursor = lastEnd + 1
	}
	return out, nil
}

func parseReadByGroupTypeResponse(rsp *att.ReadByGroupTypeResponse, primary bool) ([]Service, att.Handle, error) {
	length := int(rsp.Length)
	if length != 6 && length != 20 {
		return nil, 0, &InvalidResponseError{Reason: fmt.Sprintf("invalid group type attribute length %d", length)}
	}
	data := rsp.AttributeData
	var out []Service
	var lastEnd att.Handle
	for len(data) >= length {
		entry := data[:length]
		startHandle := att.Handle(le16(entry[0:2]))
		endHandle := att.Handle(le16(entry[2:4]))
		uuid, err := ParseUUID(entry[4:length])
		if err != nil {
			return nil, 0, &InvalidResponseError{Reason: err.Error()}
		}
		out = append(out, Service{UUID: uuid, Primary: primary, StartHandle: startHandle, EndHandle: endHandle})
		lastEnd = endHandle
		data = data[length:]
	}
	if len(data) > 0 {
		return nil, 0, &InvalidResponseError{Reason: "trailing bytes in Read By Group Type Response"}
	}
	return out, lastEnd, nil
}

// discoverServiceByUUID discovers primary services by service UUID,
// built on ATT_FIND_BY_TYPE_VALUE_REQ.
func (d *discoveryEngine) discoverServiceByUUID(ctx context.Context, start, end att.Handle, target UUID) ([]Service, error) {
	if _, ok := target.Short16(); !ok {
		return nil, fmt.Errorf("gatt: Find By Type Value only supports 16-bit service UUIDs, got %s", target)
	}

	primaryServiceType, _ := UUIDPrimaryService.Short16()

	var out []Service
	cursor := start
	for cursor <= end {
		rsp, err := d.mux.SendRequestAndAwaitResponse(ctx, att.OpFindByTypeValueRequest, cursor, &att.FindByTypeValueRequest{
			StartHandle: cursor,
			EndHandle:   end,
			Type:        primaryServiceType,
			Value:       target.Bytes(),
		})
		if err != nil {
			if att.IsError(err, att.ErrAttributeNotFound) {
				break
			}
			return nil, err
		}

		data := rsp.(*att.FindByTypeValueResponse).Data
		if len(data) == 0 || len(data)%4 != 0 {
			return nil, &InvalidResponseError{Reason: "malformed Find By Type Value Response"}
		}
		var lastEnd att.Handle
		for len(data) >= 4 {
			foundHandle := att.Handle(le16(data[0:2]))
			groupEnd := att.Handle(le16(data[2:4]))
			out = append(out, Service{UUID: target, Primary: true, StartHandle: foundHandle, EndHandle: groupEnd})
			lastEnd = groupEnd
			data = data[4:]
		}
		if lastEnd < cursor {
			return nil, &InvalidResponseError{Reason: "service-by-UUID discovery cursor did not advance"}
		}
		if lastEnd >= end {
			break
		}
		cursor = lastEnd + 1
	}
	return out, nil
}

// discoverCharacteristics walks ATT_READ_BY_TYPE_REQ over a service's
// handle range for the Characteristic declaration type.
func (d *discoveryEngine) discoverCharacteristics(ctx context.Context, svc Service) ([]Characteristic, error) {
	out, err := d.readCharacteristicDeclarations(ctx, svc.StartHandle, svc.EndHandle, nil)
	if err != nil {
		return nil, err
	}
	fillCharacteristicEndHandles(out, svc.EndHandle)
	return out, nil
}

// discoverCharacteristicsByUUID runs "Discover Characteristics by
// UUID": the Core Spec has no attribute type that filters by a
// characteristic's value UUID, so this still walks the same
// ATT_READ_BY_TYPE_REQ declaration pages as discoverCharacteristics and
// filters client-side. The optimization is stopping as soon as a page
// yields a match rather than continuing to page through the rest of
// the service: when the match is the last declaration read so far, one
// further page is still read to learn its end handle; when another
// declaration already follows it, no further page is read.
func (d *discoveryEngine) discoverCharacteristicsByUUID(ctx context.Context, svc Service, target UUID) ([]Characteristic, error) {
	matchedAt := -1
	out, err := d.readCharacteristicDeclarations(ctx, svc.StartHandle, svc.EndHandle, func(chars []Characteristic) bool {
		if matchedAt < 0 {
			for i, ch := range chars {
				if ch.UUID.Equal(target) {
					matchedAt = i
					break
				}
			}
		}
		// Once a match is found, one more declaration beyond it is
		// enough to bound its end handle; there is no need to keep
		// paging through the rest of the service.
		return matchedAt >= 0 && matchedAt+1 < len(chars)
	})
	if err != nil {
		return nil, err
	}
	if matchedAt < 0 {
		return nil, nil
	}

	match := out[matchedAt]
	if matchedAt+1 < len(out) {
		match.EndHandle = out[matchedAt+1].DeclarationHandle - 1
	} else {
		match.EndHandle = svc.EndHandle
	}
	return []Characteristic{match}, nil
}

// readCharacteristicDeclarations pages ATT_READ_BY_TYPE_REQ over
// [start, end] for the Characteristic declaration type. stop, if
// non-nil, is consulted after each page and ends the walk early once
// it returns true.
func (d *discoveryEngine) readCharacteristicDeclarations(ctx context.Context, start, end att.Handle, stop func([]Characteristic) bool) ([]Characteristic, error) {
	var out []Characteristic
	cursor := start
	for cursor <= end {
		rsp, err := d.mux.SendRequestAndAwaitResponse(ctx, att.OpReadByTypeRequest, cursor, &att.ReadByTypeRequest{
			StartHandle: cursor,
			EndHandle:   end,
			Type:        UUIDCharacteristic.Bytes(),
		})
		if err != nil {
			if att.IsError(err, att.ErrAttributeNotFound) {
				break
			}
			return nil, err
		}

		batch, lastDecl, err := parseReadByTypeResponse(rsp.(*att.ReadByTypeResponse))
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 || lastDecl < cursor {
			return nil, &InvalidResponseError{Reason: "characteristic discovery cursor did not advance"}
		}
		out = append(out, batch...)

		if stop != nil && stop(out) {
			break
		}
		if lastDecl >= end {
			break
		}
		cursor = lastDecl + 1
	}
	return out, nil
}

// fillCharacteristicEndHandles sets each characteristic's EndHandle to
// the handle just before the next characteristic declaration, or
// serviceEnd for the last one.
func fillCharacteristicEndHandles(chars []Characteristic, serviceEnd att.Handle) {
	for i := range chars {
		if i+1 < len(chars) {
			chars[i].EndHandle = chars[i+1].DeclarationHandle - 1
		} else {
			chars[i].EndHandle = serviceEnd
		}
	}
}

func parseReadByTypeResponse(rsp *att.ReadByTypeResponse) ([]Characteristic, att.Handle, error) {
	length := int(rsp.Length)
	if length != 7 && length != 21 {
		return nil, 0, &InvalidResponseError{Reason: fmt.Sprintf("invalid characteristic attribute length %d", length)}
	}
	data := rsp.AttributeData
	var out []Characteristic
	var lastDecl att.Handle
	for len(data) >= length {
		entry := data[:length]
		declHandle := att.Handle(le16(entry[0:2]))
		props := entry[2]
		valueHandle := att.Handle(le16(entry[3:5]))
		uuid, err := ParseUUID(entry[5:length])
		if err != nil {
			return nil, 0, &InvalidResponseError{Reason: err.Error()}
		}
		out = append(out, Characteristic{
			UUID:              uuid,
			Properties:        props,
			DeclarationHandle: declHandle,
			ValueHandle:       valueHandle,
		})
		lastDecl = declHandle
		data = data[length:]
	}
	if len(data) > 0 {
		return nil, 0, &InvalidResponseError{Reason: "trailing bytes in Read By Type Response"}
	}
	return out, lastDecl, nil
}

// discoverDescriptors walks ATT_FIND_INFORMATION_REQ over a
// characteristic's descriptor range (from just after its value handle
// to the characteristic's end handle).
func (d *discoveryEngine) discoverDescriptors(ctx context.Context, c Characteristic) ([]Descriptor, error) {
	start := c.ValueHandle + 1
	if start > c.EndHandle {
		return nil, nil
	}

	var out []Descriptor
	cursor := start
	for cursor <= c.EndHandle {
		rsp, err := d.mux.SendRequestAndAwaitResponse(ctx, att.OpFindInformationRequest, cursor, &att.FindInformationRequest{
			StartHandle: cursor,
			EndHandle:   c.EndHandle,
		})
		if err != nil {
			if att.IsError(err, att.ErrAttributeNotFound) {
				break
			}
			return nil, err
		}

		batch, lastHandle, err := parseFindInformationResponse(rsp.(*att.FindInformationResponse))
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 || lastHandle < cursor {
			return nil, &InvalidResponseError{Reason: "descriptor discovery cursor did not advance"}
		}
		out = append(out, batch...)

		if lastHandle >= c.EndHandle {
			break
		}
		cursor = lastHandle + 1
	}
	return out, nil
}

func parseFindInformationResponse(rsp *att.FindInformationResponse) ([]Descriptor, att.Handle, error) {
	var entrySize, uuidSize int
	switch rsp.Format {
	case 0x01:
		entrySize, uuidSize = 4, 2
	case 0x02:
		entrySize, uuidSize = 18, 16
	default:
		return nil, 0, &InvalidResponseError{Reason: fmt.Sprintf("invalid Find Information format 0x%02X", rsp.Format)}
	}

	data := rsp.Data
	var out []Descriptor
	var lastHandle att.Handle
	for len(data) >= entrySize {
		handle := att.Handle(le16(data[0:2]))
		uuid, err := ParseUUID(data[2 : 2+uuidSize])
		if err != nil {
			return nil, 0, &InvalidResponseError{Reason: err.Error()}
		}
		out = append(out, Descriptor{UUID: uuid, Handle: handle})
		lastHandle = handle
		data = data[entrySize:]
	}
	if len(data) > 0 {
		return nil, 0, &InvalidResponseError{Reason: "trailing bytes in Find Information Response"}
	}
	return out, lastHandle, nil
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
