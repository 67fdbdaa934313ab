package state

import "errors"

// The set of recoverable errors the submission and mining APIs return.
// Callers match these with errors.Is; the wrapped detail explains the
// specific failure.
var (
	// ErrMalformedTransaction is returned when a submitted transaction is
	// structurally invalid.
	ErrMalformedTransaction = errors.New("malformed transaction")

	// ErrInvalidSignature is returned when a transaction's signature does
	// not verify or does not recover to the claimed sender.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInsufficientBalance is returned when the sender cannot cover the
	// transaction value after accounting for everything already pending.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrDuplicateTransaction is returned when the transaction id is
	// already pending or already committed. Resubmission is a no-op.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrMiningBusy is returned when a mining operation is requested while
	// another is already in flight. Requests are rejected, never queued.
	ErrMiningBusy = errors.New("mining operation already running")

	// ErrStaleBlock is returned when a mined block fails re-validation
	// because the chain or the pool moved while mining. The block is
	// discarded; the caller may simply mine again.
	ErrStaleBlock = errors.New("mined block is stale")

	// ErrUnknownCompany is returned when a share purchase names a company
	// outside the governance set.
	ErrUnknownCompany = errors.New("unknown company")
)
