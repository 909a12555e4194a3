package tree

import "github.com/kazumano/bwtree/pagestore"

// ErrAgain signals a transient conflict -- a concurrent split, a lost
// CAS race, or a reconciliation restart -- that the caller (write,
// get, or the iterator) should retry from the top.
var ErrAgain = pagestore.ErrAgain

// ErrInvalidArgument signals a request that cannot succeed regardless
// of retries: an unknown page id, or reconciliation attempted with no
// parent in hand.
var ErrInvalidArgument = pagestore.ErrInvalidArgument
