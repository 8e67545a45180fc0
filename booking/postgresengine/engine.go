package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/unitloan/devicebooking/booking"
	"github.com/unitloan/devicebooking/booking/postgresengine/internal/adapters"
)

const (
	defaultAvailabilityTableName = "device_availability"
	defaultLedgerTableName       = "booking_records"

	logMsgBuildQueryFailed     = "failed to build sql query"
	logMsgBeginTxFailed        = "failed to begin transaction"
	logMsgDBExecFailed         = "database execution failed"
	logMsgDBQueryFailed        = "database query execution failed"
	logMsgScanRowFailed        = "failed to scan database row"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgRollbackFailed       = "failed to roll back transaction"
	logMsgCommitFailed         = "failed to commit transaction"
	logMsgLedgerDeleteNoRows   = "ledger delete affected no rows, counter and ledger diverged"
	logMsgDeviceBooked         = "device booked"
	logMsgDeviceReturned       = "device returned"
	logMsgAvailabilityListed   = "availability listed"
	logMsgCapacityExceeded     = "booking rejected, device at capacity"
	logMsgNoActiveBooking      = "return rejected, no active booking"
	logMsgUnknownDevice        = "operation rejected, unknown device"
	logMsgSQLExecuted          = "executed sql for: "
	logMsgOperation            = "booking engine operation: "
	logAttrError               = "error"
	logAttrQuery               = "query"
	logAttrDeviceID            = "device_id"
	logAttrHolder              = "holder"
	logAttrDurationMS          = "duration_ms"
	logAttrQuantity            = "quantity"
	logAttrMaxQuantity         = "max_quantity"
	logAttrSlotCount           = "slot_count"
	colDeviceID                = "device_id"
	colQuantity                = "quantity"
	colMaxQuantity             = "max_quantity"
	colID                      = "id"
	colHolder                  = "holder"
	colBookedAt                = "booked_at"
	dialectPostgres            = "postgres"
	exprIncrementQuantity      = "quantity + 1"
	exprDecrementQuantity      = "quantity - 1"
)

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
)

// BookingEngine executes the booking operations as atomic transactions against
// the availability table and the booking ledger table. It leverages a database
// adapter and supports customizable logging, metrics, tracing, and table names.
type BookingEngine struct {
	db                    adapters.DBAdapter
	availabilityTableName string
	ledgerTableName       string
	logger                Logger
	metricsCollector      MetricsCollector
	tracingCollector      TracingCollector
	contextualLogger      ContextualLogger
}

// NewBookingEngineFromPGXPool creates a new BookingEngine using a pgx Pool with optional configuration.
func NewBookingEngineFromPGXPool(db *pgxpool.Pool, options ...Option) (BookingEngine, error) {
	if db == nil {
		return BookingEngine{}, booking.ErrNilDatabaseConnection
	}

	return newBookingEngine(adapters.NewPGXAdapter(db), options...)
}

// NewBookingEngineFromPGXPoolWithReplica creates a new BookingEngine using a primary pgx Pool
// and a replica pool which serves the read-only availability projection.
func NewBookingEngineFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (BookingEngine, error) {
	if db == nil || replica == nil {
		return BookingEngine{}, booking.ErrNilDatabaseConnection
	}

	return newBookingEngine(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewBookingEngineFromSQLDB creates a new BookingEngine using a sql.DB with optional configuration.
func NewBookingEngineFromSQLDB(db *sql.DB, options ...Option) (BookingEngine, error) {
	if db == nil {
		return BookingEngine{}, booking.ErrNilDatabaseConnection
	}

	return newBookingEngine(adapters.NewSQLAdapter(db), options...)
}

// NewBookingEngineFromSQLX creates a new BookingEngine using a sqlx.DB with optional configuration.
func NewBookingEngineFromSQLX(db *sqlx.DB, options ...Option) (BookingEngine, error) {
	if db == nil {
		return BookingEngine{}, booking.ErrNilDatabaseConnection
	}

	return newBookingEngine(adapters.NewSQLXAdapter(db), options...)
}

func newBookingEngine(db adapters.DBAdapter, options ...Option) (BookingEngine, error) {
	be := BookingEngine{
		db:                    db,
		availabilityTableName: defaultAvailabilityTableName,
		ledgerTableName:       defaultLedgerTableName,
	}

	for _, option := range options {
		if err := option(&be); err != nil {
			return BookingEngine{}, err
		}
	}

	return be, nil
}

// BookDevice checks one unit of the device out to the holder.
//
// Within a single transaction it increments the availability counter with a
// guarded UPDATE (quantity < max_quantity) and appends one ledger record. If
// the guard rejects the update, the transaction is aborted and the engine
// returns booking.ErrCapacityExceeded for a provisioned device at capacity or
// booking.ErrUnknownDevice for an unprovisioned one. Two concurrent calls
// racing for the last free unit can never both pass the guard.
func (be BookingEngine) BookDevice(ctx context.Context, deviceID booking.DeviceID, holder string, bookedAt time.Time) error {
	record, buildErr := booking.BuildBookingRecord(deviceID, holder, bookedAt)
	if buildErr != nil {
		return buildErr
	}

	start := time.Now()
	ctx, span := be.startOperationSpan(ctx, spanNameBook, deviceID)

	err := be.bookDeviceInTx(ctx, record)
	duration := time.Since(start)

	if err != nil {
		be.recordOperationError(ctx, operationBook, err, duration)
		be.finishOperationSpan(span, statusFromError(err))

		return err
	}

	be.logOperationContext(ctx, logMsgDeviceBooked,
		logAttrDeviceID, int32(deviceID),
		logAttrHolder, record.Holder,
		logAttrDurationMS, toMilliseconds(duration))
	be.recordOperationSuccess(ctx, operationBook, duration)
	be.finishOperationSpan(span, statusSuccess)

	return nil
}

func (be BookingEngine) bookDeviceInTx(ctx context.Context, record booking.BookingRecord) error {
	consumeQuery, buildErr := be.buildConsumeUnitQuery(record.DeviceID)
	if buildErr != nil {
		return buildErr
	}

	appendQuery, buildErr := be.buildAppendRecordQuery(record)
	if buildErr != nil {
		return buildErr
	}

	tx, beginErr := be.beginTx(ctx)
	if beginErr != nil {
		return beginErr
	}
	defer be.rollbackTx(ctx, tx)

	rowsAffected, execErr := be.executeStatement(ctx, tx, consumeQuery, actionBook)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return be.classifyRejectedBook(ctx, tx, record.DeviceID)
	}

	if _, execErr = be.executeStatement(ctx, tx, appendQuery, actionBook); execErr != nil {
		return execErr
	}

	return be.commitTx(ctx, tx)
}

// classifyRejectedBook decides, within the same transaction, whether a rejected
// guarded update means the device is unknown or at capacity.
func (be BookingEngine) classifyRejectedBook(ctx context.Context, tx adapters.DBTx, deviceID booking.DeviceID) error {
	_, found, readErr := be.readAvailabilityRow(ctx, tx, deviceID)
	if readErr != nil {
		return readErr
	}

	if !found {
		be.logOperationContext(ctx, logMsgUnknownDevice, logAttrDeviceID, int32(deviceID))
		return booking.ErrUnknownDevice
	}

	be.logOperationContext(ctx, logMsgCapacityExceeded, logAttrDeviceID, int32(deviceID))
	be.recordCapacityRejection(ctx)

	return booking.ErrCapacityExceeded
}

// ReturnDevice releases the most recently booked unit of the device.
//
// The release is deliberately not keyed by holder: whichever booking record
// carries the latest booked_at (ties broken by record ID, i.e. insertion
// order) is removed, and the availability counter is decremented with a
// guarded UPDATE (quantity > 0) in the same transaction. A return on a device
// with no active bookings is rejected with booking.ErrNoActiveBooking instead
// of corrupting the counter.
func (be BookingEngine) ReturnDevice(ctx context.Context, deviceID booking.DeviceID) error {
	start := time.Now()
	ctx, span := be.startOperationSpan(ctx, spanNameReturn, deviceID)

	err := be.returnDeviceInTx(ctx, deviceID)
	duration := time.Since(start)

	if err != nil {
		be.recordOperationError(ctx, operationReturn, err, duration)
		be.finishOperationSpan(span, statusFromError(err))

		return err
	}

	be.logOperationContext(ctx, logMsgDeviceReturned,
		logAttrDeviceID, int32(deviceID),
		logAttrDurationMS, toMilliseconds(duration))
	be.recordOperationSuccess(ctx, operationReturn, duration)
	be.finishOperationSpan(span, statusSuccess)

	return nil
}

func (be BookingEngine) returnDeviceInTx(ctx context.Context, deviceID booking.DeviceID) error {
	releaseQuery, buildErr := be.buildReleaseUnitQuery(deviceID)
	if buildErr != nil {
		return buildErr
	}

	removeQuery, buildErr := be.buildRemoveMostRecentQuery(deviceID)
	if buildErr != nil {
		return buildErr
	}

	tx, beginErr := be.beginTx(ctx)
	if beginErr != nil {
		return beginErr
	}
	defer be.rollbackTx(ctx, tx)

	rowsAffected, execErr := be.executeStatement(ctx, tx, releaseQuery, actionReturn)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return be.classifyRejectedReturn(ctx, tx, deviceID)
	}

	rowsAffected, execErr = be.executeStatement(ctx, tx, removeQuery, actionReturn)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		// The counter said a unit was checked out but the ledger holds no
		// record for it. Abort so the divergence is never committed.
		be.logErrorContext(ctx, logMsgLedgerDeleteNoRows, booking.ErrLedgerOutOfSync, logAttrDeviceID, int32(deviceID))
		return booking.ErrLedgerOutOfSync
	}

	return be.commitTx(ctx, tx)
}

// classifyRejectedReturn decides, within the same transaction, whether a rejected
// guarded decrement means the device is unknown or has no active bookings.
func (be BookingEngine) classifyRejectedReturn(ctx context.Context, tx adapters.DBTx, deviceID booking.DeviceID) error {
	_, found, readErr := be.readAvailabilityRow(ctx, tx, deviceID)
	if readErr != nil {
		return readErr
	}

	if !found {
		be.logOperationContext(ctx, logMsgUnknownDevice, logAttrDeviceID, int32(deviceID))
		return booking.ErrUnknownDevice
	}

	be.logOperationContext(ctx, logMsgNoActiveBooking, logAttrDeviceID, int32(deviceID))

	return booking.ErrNoActiveBooking
}

// ListAvailability returns the full slot projection for the device: the
// checked-out units most-recent-first followed by the free units, always
// max_quantity entries in total. An unknown device, or one provisioned with
// no capacity, projects to an empty sequence rather than an error.
//
// Counter and ledger are read inside one repeatable-read transaction, so the
// projection never mixes the state before and after a concurrent book or return.
func (be BookingEngine) ListAvailability(ctx context.Context, deviceID booking.DeviceID) (booking.AvailabilitySlots, error) {
	start := time.Now()
	ctx, span := be.startOperationSpan(ctx, spanNameAvailability, deviceID)

	slots, err := be.listAvailabilityInTx(ctx, deviceID)
	duration := time.Since(start)

	if err != nil {
		be.recordOperationError(ctx, operationAvailability, err, duration)
		be.finishOperationSpan(span, statusFromError(err))

		return nil, err
	}

	be.logOperationContext(ctx, logMsgAvailabilityListed,
		logAttrDeviceID, int32(deviceID),
		logAttrSlotCount, len(slots),
		logAttrDurationMS, toMilliseconds(duration))
	be.recordOperationSuccess(ctx, operationAvailability, duration)
	be.finishOperationSpan(span, statusSuccess)

	return slots, nil
}

func (be BookingEngine) listAvailabilityInTx(ctx context.Context, deviceID booking.DeviceID) (booking.AvailabilitySlots, error) {
	tx, beginErr := be.beginReadOnlyTx(ctx)
	if beginErr != nil {
		return nil, beginErr
	}
	defer be.rollbackTx(ctx, tx)

	availability, found, readErr := be.readAvailabilityRow(ctx, tx, deviceID)
	if readErr != nil {
		return nil, readErr
	}

	if !found || availability.MaxQuantity <= 0 {
		return booking.AvailabilitySlots{}, nil
	}

	var records []booking.BookingRecord

	if availability.Quantity > 0 {
		var listErr error

		records, listErr = be.listRecentRecords(ctx, tx, deviceID, availability.Quantity)
		if listErr != nil {
			return nil, listErr
		}
	}

	if commitErr := be.commitTx(ctx, tx); commitErr != nil {
		return nil, commitErr
	}

	return booking.BuildAvailabilitySlots(availability, records), nil
}

// ReadDeviceAvailability returns the current counters for the device, or
// booking.ErrUnknownDevice if it was never provisioned.
func (be BookingEngine) ReadDeviceAvailability(ctx context.Context, deviceID booking.DeviceID) (booking.DeviceAvailability, error) {
	tx, beginErr := be.beginReadOnlyTx(ctx)
	if beginErr != nil {
		return booking.DeviceAvailability{}, beginErr
	}
	defer be.rollbackTx(ctx, tx)

	availability, found, readErr := be.readAvailabilityRow(ctx, tx, deviceID)
	if readErr != nil {
		return booking.DeviceAvailability{}, readErr
	}

	if !found {
		return booking.DeviceAvailability{}, booking.ErrUnknownDevice
	}

	if commitErr := be.commitTx(ctx, tx); commitErr != nil {
		return booking.DeviceAvailability{}, commitErr
	}

	return availability, nil
}

func (be BookingEngine) readAvailabilityRow(ctx context.Context, tx adapters.DBTx, deviceID booking.DeviceID) (
	booking.DeviceAvailability,
	bool,
	error,
) {

	var empty booking.DeviceAvailability

	sqlQuery, buildErr := be.buildReadAvailabilityQuery(deviceID)
	if buildErr != nil {
		return empty, false, buildErr
	}

	start := time.Now()
	rows, queryErr := tx.Query(ctx, sqlQuery)
	be.logQueryWithDurationContext(ctx, sqlQuery, actionRead, time.Since(start))

	if queryErr != nil {
		be.logErrorContext(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return empty, false, be.wrapStorageError(queryErr)
	}
	defer be.closeRows(ctx, rows)

	availability := booking.DeviceAvailability{DeviceID: deviceID}
	found := false

	for rows.Next() {
		if scanErr := rows.Scan(&availability.Quantity, &availability.MaxQuantity); scanErr != nil {
			be.logErrorContext(ctx, logMsgScanRowFailed, scanErr)
			return empty, false, be.wrapStorageError(scanErr)
		}

		found = true
	}

	return availability, found, nil
}

func (be BookingEngine) listRecentRecords(
	ctx context.Context,
	tx adapters.DBTx,
	deviceID booking.DeviceID,
	limit int32,
) ([]booking.BookingRecord, error) {

	sqlQuery, buildErr := be.buildListRecentQuery(deviceID, limit)
	if buildErr != nil {
		return nil, buildErr
	}

	start := time.Now()
	rows, queryErr := tx.Query(ctx, sqlQuery)
	be.logQueryWithDurationContext(ctx, sqlQuery, actionRead, time.Since(start))

	if queryErr != nil {
		be.logErrorContext(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, be.wrapStorageError(queryErr)
	}
	defer be.closeRows(ctx, rows)

	records := make([]booking.BookingRecord, 0, limit)

	for rows.Next() {
		record := booking.BookingRecord{DeviceID: deviceID}

		if scanErr := rows.Scan(&record.Holder, &record.BookedAt); scanErr != nil {
			be.logErrorContext(ctx, logMsgScanRowFailed, scanErr)
			return nil, be.wrapStorageError(scanErr)
		}

		records = append(records, record)
	}

	return records, nil
}

// executeStatement executes a mutating SQL statement within the transaction
// and returns the number of rows affected.
func (be BookingEngine) executeStatement(
	ctx context.Context,
	tx adapters.DBTx,
	sqlQuery sqlQueryString,
	action string,
) (rowsAffectedInt64, error) {

	start := time.Now()
	result, execErr := tx.Exec(ctx, sqlQuery)
	be.logQueryWithDurationContext(ctx, sqlQuery, action, time.Since(start))

	if execErr != nil {
		be.logErrorContext(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		return 0, be.wrapStorageError(execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		be.logErrorContext(ctx, logMsgDBExecFailed, rowsAffectedErr)
		return 0, be.wrapStorageError(rowsAffectedErr)
	}

	return rowsAffected, nil
}

func (be BookingEngine) beginTx(ctx context.Context) (adapters.DBTx, error) {
	tx, err := be.db.Begin(ctx)
	if err != nil {
		be.logErrorContext(ctx, logMsgBeginTxFailed, err)
		return nil, be.wrapStorageError(err)
	}

	return tx, nil
}

func (be BookingEngine) beginReadOnlyTx(ctx context.Context) (adapters.DBTx, error) {
	tx, err := be.db.BeginReadOnly(ctx)
	if err != nil {
		be.logErrorContext(ctx, logMsgBeginTxFailed, err)
		return nil, be.wrapStorageError(err)
	}

	return tx, nil
}

func (be BookingEngine) commitTx(ctx context.Context, tx adapters.DBTx) error {
	if err := tx.Commit(ctx); err != nil {
		be.logErrorContext(ctx, logMsgCommitFailed, err)
		return be.wrapStorageError(err)
	}

	return nil
}

// rollbackTx safely rolls back a transaction and logs any errors.
// Rolling back an already committed transaction is a no-op.
func (be BookingEngine) rollbackTx(ctx context.Context, tx adapters.DBTx) {
	if err := tx.Rollback(ctx); err != nil {
		be.logWarnContext(ctx, logMsgRollbackFailed, logAttrError, err.Error())
	}
}

// wrapStorageError classifies adapter errors: serialization conflicts become
// booking.ErrConcurrencyConflict (safe to retry as a whole), everything else
// becomes booking.ErrStorageFailure.
func (be BookingEngine) wrapStorageError(err error) error {
	if errors.Is(err, adapters.ErrSerializationConflict) {
		return errors.Join(booking.ErrConcurrencyConflict, err)
	}

	return errors.Join(booking.ErrStorageFailure, err)
}

func (be BookingEngine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		be.logWarnContext(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func (be BookingEngine) buildConsumeUnitQuery(deviceID booking.DeviceID) (sqlQueryString, error) {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(be.availabilityTableName).
		Set(goqu.Record{colQuantity: goqu.L(exprIncrementQuantity)}).
		Where(
			goqu.C(colDeviceID).Eq(int32(deviceID)),
			goqu.C(colQuantity).Lt(goqu.C(colMaxQuantity)),
		)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		be.logError(logMsgBuildQueryFailed, toSQLErr)
		return "", be.wrapStorageError(toSQLErr)
	}

	return sqlQuery, nil
}

func (be BookingEngine) buildReleaseUnitQuery(deviceID booking.DeviceID) (sqlQueryString, error) {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(be.availabilityTableName).
		Set(goqu.Record{colQuantity: goqu.L(exprDecrementQuantity)}).
		Where(
			goqu.C(colDeviceID).Eq(int32(deviceID)),
			goqu.C(colQuantity).Gt(0),
		)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		be.logError(logMsgBuildQueryFailed, toSQLErr)
		return "", be.wrapStorageError(toSQLErr)
	}

	return sqlQuery, nil
}

func (be BookingEngine) buildAppendRecordQuery(record booking.BookingRecord) (sqlQueryString, error) {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(be.ledgerTableName).
		Cols(colID, colDeviceID, colHolder, colBookedAt).
		Vals(goqu.Vals{record.ID.String(), int32(record.DeviceID), record.Holder, record.BookedAt})

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		be.logError(logMsgBuildQueryFailed, toSQLErr)
		return "", be.wrapStorageError(toSQLErr)
	}

	return sqlQuery, nil
}

// buildRemoveMostRecentQuery deletes exactly the active record with the
// latest booked_at for the device, using the UUIDv7 record ID as the
// deterministic tiebreaker.
func (be BookingEngine) buildRemoveMostRecentQuery(deviceID booking.DeviceID) (sqlQueryString, error) {
	builder := goqu.Dialect(dialectPostgres)

	mostRecentStmt := builder.
		From(be.ledgerTableName).
		Select(colID).
		Where(goqu.C(colDeviceID).Eq(int32(deviceID))).
		Order(goqu.I(colBookedAt).Desc(), goqu.I(colID).Desc()).
		Limit(1)

	deleteStmt := builder.
		Delete(be.ledgerTableName).
		Where(goqu.C(colID).In(mostRecentStmt))

	sqlQuery, _, toSQLErr := deleteStmt.ToSQL()
	if toSQLErr != nil {
		be.logError(logMsgBuildQueryFailed, toSQLErr)
		return "", be.wrapStorageError(toSQLErr)
	}

	return sqlQuery, nil
}

func (be BookingEngine) buildReadAvailabilityQuery(deviceID booking.DeviceID) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(be.availabilityTableName).
		Select(colQuantity, colMaxQuantity).
		Where(goqu.C(colDeviceID).Eq(int32(deviceID)))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		be.logError(logMsgBuildQueryFailed, toSQLErr)
		return "", be.wrapStorageError(toSQLErr)
	}

	return sqlQuery, nil
}

func (be BookingEngine) buildListRecentQuery(deviceID booking.DeviceID, limit int32) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(be.ledgerTableName).
		Select(colHolder, colBookedAt).
		Where(goqu.C(colDeviceID).Eq(int32(deviceID))).
		Order(goqu.I(colBookedAt).Desc(), goqu.I(colID).Desc()).
		Limit(uint(limit))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		be.logError(logMsgBuildQueryFailed, toSQLErr)
		return "", be.wrapStorageError(toSQLErr)
	}

	return sqlQuery, nil
}
