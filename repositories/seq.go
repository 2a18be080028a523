package repositories

import "github.com/dgraph-io/badger/v4"

// nextID draws the next id from a sequence, skipping zero. Id zero is
// reserved for "no user" (system-created records), so no entity may
// ever receive it.
func nextID(seq *badger.Sequence) (uint64, error) {
	id, err := seq.Next()
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return seq.Next()
	}
	return id, nil
}

// update runs fn in a read-write transaction, retrying on optimistic
// conflicts. A check-then-write that loses the race re-runs against the
// committed state and reports the domain error (duplicate name, already
// member) instead of leaking badger.ErrConflict.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	for {
		err := db.Update(fn)
		if err != badger.ErrConflict {
			return err
		}
	}
}
