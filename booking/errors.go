package booking

import (
	"errors"
)

var (
	// ErrUnknownDevice is returned when the device identifier has never been provisioned in the availability store.
	ErrUnknownDevice = errors.New("unknown device, no availability row provisioned")

	// ErrCapacityExceeded is returned when a book operation finds all units of the device already checked out.
	ErrCapacityExceeded = errors.New("capacity exceeded, all units of this device are checked out")

	// ErrNoActiveBooking is returned when a return operation finds no active bookings for the device.
	ErrNoActiveBooking = errors.New("no active booking exists for this device")

	// ErrConcurrencyConflict is returned when the storage layer reports a serialization conflict.
	// Operations failing with this error left no partial effect and are safe to retry as a whole.
	ErrConcurrencyConflict = errors.New("concurrency conflict, the transaction was aborted without effect")

	// ErrStorageFailure wraps transient persistence failures (connection loss, timeouts, failed commits).
	ErrStorageFailure = errors.New("storage failure, the transaction was aborted")

	// ErrLedgerOutOfSync is returned when the ledger row count diverges from the availability counter
	// inside a transaction. The transaction is rolled back, so the divergence is never committed.
	ErrLedgerOutOfSync = errors.New("booking ledger is out of sync with the availability counter")

	// ErrEmptyHolder is returned when a book operation is attempted without a holder identifier.
	ErrEmptyHolder = errors.New("empty holder supplied")

	// ErrEmptyTableNameSupplied is returned when an engine option is given an empty table name.
	ErrEmptyTableNameSupplied = errors.New("empty table name supplied")

	// ErrNilDatabaseConnection is returned when an engine constructor is given a nil connection.
	ErrNilDatabaseConnection = errors.New("nil database connection supplied")
)
