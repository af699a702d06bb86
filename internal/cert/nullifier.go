package cert

// NullifierRegistry tracks consumed proof nullifiers to block replay. The
// registry persists independently of the ledger store.
//
// TryConsume must be a single atomic compare-and-set: two concurrent calls
// with the same nullifier must never both return true. A separate
// has-then-add sequence would leave a window where the same proof verifies
// twice.
type NullifierRegistry interface {
	// Has reports whether the nullifier has been consumed. Pure read.
	Has(nullifier string) (bool, error)

	// TryConsume marks the nullifier consumed and returns true, or returns
	// false if it was already consumed. Atomic per nullifier.
	TryConsume(nullifier string) (bool, error)
}
