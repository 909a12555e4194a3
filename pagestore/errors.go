package pagestore

import "github.com/pkg/errors"

// ErrAgain means the caller observed a transient conflict (a racing
// writer won a CAS first) and should retry its operation from the
// top, typically after re-reading whatever page it was updating.
var ErrAgain = errors.New("pagestore: conflict, retry")

// ErrInvalidArgument means the request itself cannot succeed no
// matter how many times it's retried -- an unknown page id, or a
// write against an address that has already been deallocated.
var ErrInvalidArgument = errors.New("pagestore: invalid argument")

// ErrAbort is returned by Txn methods once the transaction has been
// rolled back, either explicitly or by a prior hard failure.
var ErrAbort = errors.New("pagestore: transaction aborted")

// ConflictError reports the address a CAS observed instead of the one
// the caller expected, standing in for the original's move-based
// Err(Some((txn, addr))) return: Go has no ownership to move, so the
// *Txn the caller already holds is simply reused for the retry.
type ConflictError struct {
	Current PageAddr
}

func (e *ConflictError) Error() string {
	return errors.Errorf("pagestore: conflicting address %d", e.Current).Error()
}
