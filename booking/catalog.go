package booking

// Catalog is the lookup of valid device identifiers.
//
// The engine itself stays agnostic of what a "device" is; the caller layer
// validates identifiers against a Catalog before invoking book or return.
type Catalog interface {
	Contains(deviceID DeviceID) bool
	DeviceIDs() []DeviceID
}

// StaticCatalog is a fixed, in-memory Catalog, typically seeded from
// configuration at startup.
type StaticCatalog struct {
	deviceIDs map[DeviceID]struct{}
	ordered   []DeviceID
}

// BuildStaticCatalog creates a StaticCatalog from the given device identifiers.
// Duplicates are collapsed; the original order is preserved for DeviceIDs.
func BuildStaticCatalog(deviceIDs ...DeviceID) *StaticCatalog {
	catalog := &StaticCatalog{
		deviceIDs: make(map[DeviceID]struct{}, len(deviceIDs)),
	}

	for _, id := range deviceIDs {
		if _, ok := catalog.deviceIDs[id]; ok {
			continue
		}

		catalog.deviceIDs[id] = struct{}{}
		catalog.ordered = append(catalog.ordered, id)
	}

	return catalog
}

// Contains reports whether the device identifier is part of the catalog.
func (c *StaticCatalog) Contains(deviceID DeviceID) bool {
	_, ok := c.deviceIDs[deviceID]
	return ok
}

// DeviceIDs returns the catalog entries in their configured order.
func (c *StaticCatalog) DeviceIDs() []DeviceID {
	ids := make([]DeviceID, len(c.ordered))
	copy(ids, c.ordered)

	return ids
}
