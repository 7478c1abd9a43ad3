// Package repository persists events, bridge tasks and scan checkpoints
// behind a small prefixed key/value interface, grounded on klaytn's
// storage/database package: the same Put/Has/Get/Delete/NewIteratorWithPrefix
// shape, the same table-prefix wrapper idiom, adapted to this domain's three
// namespaces instead of klaytn's chain-data tables.
package repository

import "github.com/syndtr/goleveldb/leveldb/iterator"

// KV is the minimal prefixed key/value surface both providers implement.
// It is deliberately small: no Batch, no Meter — this is a relayer
// bookkeeping store, not a blockchain state database.
type KV interface {
	Put(key, value []byte) error
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	NewIteratorWithPrefix(prefix []byte) iterator.Iterator
	Close()
}

const (
	prefixEvent            = "event-"
	prefixBridgeTask       = "bridge-task-"
	prefixLastScannedBlock = "last-scanned-block-"
)
