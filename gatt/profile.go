package gatt

import (
	"context"

	"github.com/user/blegatt/att"
)

// DiscoverServices runs the primary-service discovery sub-procedure
// over the full attribute handle range.
func (c *Client) DiscoverServices(ctx context.Context) ([]Service, error) {
	return c.disc.discoverServices(ctx, att.HandleMin, att.HandleMax, true)
}

// DiscoverServicesByUUID runs "Discover Primary Service by Service
// UUID" (ATT_FIND_BY_TYPE_VALUE_REQ).
func (c *Client) DiscoverServicesByUUID(ctx context.Context, uuid UUID) ([]Service, error) {
	return c.disc.discoverServiceByUUID(ctx, att.HandleMin, att.HandleMax, uuid)
}

// DiscoverCharacteristics runs "Discover All Characteristics of a
// Service" for svc.
func (c *Client) DiscoverCharacteristics(ctx context.Context, svc Service) ([]Characteristic, error) {
	return c.disc.discoverCharacteristics(ctx, svc)
}

// DiscoverCharacteristicsByUUID runs "Discover Characteristics by
// UUID" for svc, stopping as soon as a matching declaration is found
// rather than discovering every characteristic first and filtering
// after. Returns a nil slice, nil error if no characteristic with that
// UUID exists in svc.
func (c *Client) DiscoverCharacteristicsByUUID(ctx context.Context, svc Service, uuid UUID) ([]Characteristic, error) {
	return c.disc.discoverCharacteristicsByUUID(ctx, svc, uuid)
}

// DiscoverDescriptors runs "Discover All Characteristic Descriptors"
// for ch.
func (c *Client) DiscoverDescriptors(ctx context.Context, ch Characteristic) ([]Descriptor, error) {
	return c.disc.discoverDescriptors(ctx, ch)
}

// DiscoverProfile walks the full service/characteristic/descriptor
// hierarchy in one call. This is not itself one of the Core Spec's
// discovery sub-procedures; it is a client-side convenience that
// chains them.
func (c *Client) DiscoverProfile(ctx context.Context) (*Profile, error) {
	services, err := c.DiscoverServices(ctx)
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		Services:        services,
		Characteristics: make(map[att.Handle][]Characteristic),
		Descriptors:     make(map[att.Handle][]Descriptor),
	}

	for _, svc := range services {
		chars, err := c.DiscoverCharacteristics(ctx, svc)
		if err != nil {
			return nil, err
		}
		profile.Characteristics[svc.StartHandle] = chars

		for _, ch := range chars {
			descs, err := c.DiscoverDescriptors(ctx, ch)
			if err != nil {
				return nil, err
			}
			if len(descs) > 0 {
				profile.Descriptors[ch.ValueHandle] = descs
			}
		}
	}

	return profile, nil
}
