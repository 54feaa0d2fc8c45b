package models

// AddressRecord is a single row of the output set.
// Longitude and Latitude are nil unless the address was resolved.
type AddressRecord struct {
	Address   string   // Address is the trimmed free-form address, unique within an output set.
	Longitude *float64 // Longitude of the resolved address.
	Latitude  *float64 // Latitude of the resolved address.
}

// NewAddressRecord builds a resolved record from the given coordinates.
func NewAddressRecord(address string, coords Coordinates) AddressRecord {
	lon, lat := coords.Longitude, coords.Latitude
	return AddressRecord{Address: address, Longitude: &lon, Latitude: &lat}
}

// Resolved reports whether both coordinates are present.
func (r AddressRecord) Resolved() bool {
	return r.Longitude != nil && r.Latitude != nil
}

// OutputSet is the accumulated result of previous runs as read from an output store.
// Found is false when the store did not exist yet, which is not an error.
type OutputSet struct {
	Records []AddressRecord
	Found   bool
}

// Addresses returns the set of addresses already present in the output.
func (o OutputSet) Addresses() map[string]struct{} {
	done := make(map[string]struct{}, len(o.Records))
	for _, rec := range o.Records {
		done[rec.Address] = struct{}{}
	}

	return done
}
