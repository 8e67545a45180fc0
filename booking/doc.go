// Package booking contains the core types, errors and pure logic of the
// device booking domain: per-device availability counters, the booking
// ledger records, and the availability slot projection.
//
// The package is storage-agnostic. The transactional engine that persists
// these types lives in booking/postgresengine.
package booking
