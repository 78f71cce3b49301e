package reservation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/apperror"
)

var (
	ErrInvalidRequest          = apperror.New(http.StatusBadRequest, "invalid reservation request")
	ErrInvalidRange            = apperror.New(http.StatusBadRequest, "start must be before end")
	ErrNotFound                = apperror.New(http.StatusNotFound, "reservation not found")
	ErrRoomTypeNotFound        = apperror.New(http.StatusNotFound, "room type not found for hotel")
	ErrGuestNotFound           = apperror.New(http.StatusBadRequest, "guest not found")
	ErrForbidden               = apperror.New(http.StatusForbidden, "not allowed to access this reservation")
	ErrCapacityExceeded        = apperror.New(http.StatusConflict, "room type is fully booked for the requested interval")
	ErrInvalidStatusTransition = apperror.New(http.StatusConflict, "invalid reservation status transition")
	ErrConflictAbort           = apperror.NewRetryable(http.StatusConflict, "reservation aborted by a concurrent booking, retry the request")
	ErrStoreUnavailable        = apperror.NewRetryable(http.StatusServiceUnavailable, "reservation store unavailable, retry later")
	// ErrOutcomeUnknown means the commit was sent but never acknowledged. The
	// reservation may exist, so the request must not be repeated blindly.
	ErrOutcomeUnknown = apperror.New(http.StatusServiceUnavailable, "reservation outcome unknown, check your reservations before retrying")
)

const guestForeignKey = "reservations_guest_id_fkey"

// IsRetryable reports whether the identical request may succeed if repeated.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflictAbort) || errors.Is(err, ErrStoreUnavailable)
}

// classifyStoreError maps a storage failure onto the reservation error kinds.
// Errors that already carry a kind are returned unchanged; anything not
// recognized stays unclassified and surfaces as an internal error.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.SerializationFailure,
			pgErr.Code == pgerrcode.DeadlockDetected:
			return fmt.Errorf("%w: %w", ErrConflictAbort, err)
		case pgErr.Code == pgerrcode.LockNotAvailable,
			pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsOperatorIntervention(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code):
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		case pgErr.Code == pgerrcode.ForeignKeyViolation:
			if pgErr.ConstraintName == guestForeignKey {
				return fmt.Errorf("%w: %w", ErrGuestNotFound, err)
			}
			return fmt.Errorf("%w: %w", ErrRoomTypeNotFound, err)
		}
		return fmt.Errorf("reservation store error: %w", err)
	}

	var netErr net.Error
	var connectErr *pgconn.ConnectError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		pgconn.Timeout(err),
		errors.As(err, &connectErr),
		errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return fmt.Errorf("reservation store error: %w", err)
}

// unavailable marks err as a store availability failure regardless of its cause.
// Used where the transaction could not be started or configured.
func unavailable(err error) error {
	classified := classifyStoreError(err)
	if errors.Is(classified, ErrConflictAbort) || errors.Is(classified, ErrStoreUnavailable) {
		return classified
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// commitFailed classifies a failed COMMIT. An error reported by the server
// means the transaction was rolled back. Anything else (a dropped connection,
// an expired context) leaves the outcome unknown.
func commitFailed(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return unavailable(err)
	}
	return fmt.Errorf("%w: %w", ErrOutcomeUnknown, err)
}
