package gatt

import "github.com/user/blegatt/att"

// CharacteristicProperty is a single bit of a characteristic's
// properties byte.
type CharacteristicProperty uint8

const (
	PropBroadcast                 CharacteristicProperty = 0x01
	PropRead                      CharacteristicProperty = 0x02
	PropWriteWithoutResponse      CharacteristicProperty = 0x04
	PropWrite                     CharacteristicProperty = 0x08
	PropNotify                    CharacteristicProperty = 0x10
	PropIndicate                  CharacteristicProperty = 0x20
	PropAuthenticatedSignedWrites CharacteristicProperty = 0x40
	PropExtendedProperties        CharacteristicProperty = 0x80
)

// Has reports whether p is set in the characteristic's properties byte.
func (p CharacteristicProperty) Has(props uint8) bool {
	return props&uint8(p) != 0
}

// Service is a discovered primary or secondary GATT service.
type Service struct {
	UUID        UUID
	Primary     bool
	StartHandle att.Handle
	EndHandle   att.Handle
}

// Characteristic is a discovered GATT characteristic, addressed by its
// value handle for Read/Write operations.
type Characteristic struct {
	UUID              UUID
	Properties        uint8
	DeclarationHandle att.Handle
	ValueHandle       att.Handle
	// EndHandle bounds the characteristic's descriptor range: the
	// handle just before the next characteristic declaration (or the
	// enclosing service's end handle for the last characteristic).
	EndHandle att.Handle
}

// CanRead, CanWrite etc. read the properties byte as convenience
// predicates for the long-value and subscription engines.
func (c Characteristic) CanRead() bool              { return PropRead.Has(c.Properties) }
func (c Characteristic) CanWrite() bool             { return PropWrite.Has(c.Properties) }
func (c Characteristic) CanWriteWithoutResponse() bool {
	return PropWriteWithoutResponse.Has(c.Properties)
}
func (c Characteristic) CanNotify() bool   { return PropNotify.Has(c.Properties) }
func (c Characteristic) CanIndicate() bool { return PropIndicate.Has(c.Properties) }
func (c Characteristic) CanSignedWrite() bool {
	return PropAuthenticatedSignedWrites.Has(c.Properties)
}

// Descriptor is a discovered characteristic descriptor.
type Descriptor struct {
	UUID   UUID
	Handle att.Handle
}

// Profile is the full result of DiscoverProfile: every service on the
// server together with its characteristics and descriptors.
type Profile struct {
	Services        []Service
	Characteristics map[att.Handle][]Characteristic // service start handle -> its characteristics
	Descriptors     map[att.Handle][]Descriptor      // characteristic value handle -> its descriptors
}

// CharacteristicByUUID returns a characteristic in the profile matching
// uuid, searching every service. Services are searched in map order, so
// when several services hold a match, which one is returned is not
// defined.
func (p *Profile) CharacteristicByUUID(target UUID) (Characteristic, bool) {
	for _, chars := range p.Characteristics {
		for _, c := range chars {
			if c.UUID.Equal(target) {
				return c, true
			}
		}
	}
	return Characteristic{}, false
}
