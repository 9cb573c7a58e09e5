package store

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	// ErrSchemaUnavailable is returned when the backing database cannot be opened
	// or its schema cannot be established. The store is unusable until a later
	// Open succeeds.
	ErrSchemaUnavailable = fmt.Errorf("schema unavailable: %w", errdefs.ErrUnavailable)

	// ErrStoreNotInitialized is returned by transactions on a store that was never
	// opened or has been closed.
	ErrStoreNotInitialized = fmt.Errorf("store not initialized: %w", errdefs.ErrFailedPrecondition)

	// ErrTransactionAborted wraps every failure inside a transaction. No writes
	// from an aborted transaction are visible afterwards.
	ErrTransactionAborted = fmt.Errorf("transaction aborted: %w", errdefs.ErrAborted)

	errOutOfScope     = errors.New("collection not in transaction scope")
	errReadOnly       = errors.New("write attempted in read-only transaction")
	errUnknownColl    = errors.New("unknown collection")
	errEmptyScope     = errors.New("transaction needs at least one collection")
	errTooManyEntries = fmt.Errorf("question set too large: %w", errdefs.ErrInvalidArgument)
)
