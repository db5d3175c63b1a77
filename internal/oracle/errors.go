package oracle

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrFutureTime indicates a query time past the current call time.
	ErrFutureTime = errors.New("queried time is in the future")

	// ErrZeroTimestamps indicates an empty batch query.
	ErrZeroTimestamps = errors.New("zero timestamps provided")

	// ErrTimestampsNotSorted indicates a batch query that is not non-decreasing.
	ErrTimestampsNotSorted = errors.New("timestamps not sorted")

	// ErrEndTimeLessThanStartTime indicates a degenerate averaging window.
	ErrEndTimeLessThanStartTime = errors.New("end time must be greater than start time")

	// ErrPairsWithNativeTokenOnly rejects pools not paired with the native token.
	ErrPairsWithNativeTokenOnly = errors.New("pool must pair with the native token")

	// ErrFeeMustBeZero rejects pools with a nonzero fee.
	ErrFeeMustBeZero = errors.New("pool fee must be zero")

	// ErrTickSpacingMustBeMaximum rejects pools without full-range tick spacing.
	ErrTickSpacingMustBeMaximum = errors.New("pool tick spacing must be maximum")
)

// NoPreviousSnapshotError reports that no retained snapshot exists at or
// before the requested time. Count lets the caller tell a token that was
// never written (Count == 0) from one whose history has been overwritten.
type NoPreviousSnapshotError struct {
	Token common.Address
	Time  uint64
	Count uint64
}

func (e *NoPreviousSnapshotError) Error() string {
	return fmt.Sprintf("no previous snapshot for %s at %d (count %d)", e.Token.Hex(), e.Time, e.Count)
}

// ErrPoolNotRegistered indicates a token without a registered canonical pool.
var ErrPoolNotRegistered = errors.New("no pool registered for token")
