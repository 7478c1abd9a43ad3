package repository

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/codec"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
)

const eventHandledRegistered = "registered"

// Store is the application-level repository, grounded on
// original_source's application/repository.py: it wraps three prefixed
// tables over one KV and exposes operation-named methods (IsEventStored,
// StoreEvent, SaveBridgeTask, ...) instead of raw Put/Get, so the scanner,
// consumer and CLI never touch key construction directly.
type Store struct {
	events      *table
	bridgeTasks *table
	lastBlocks  *table
}

// NewStore wraps a raw KV (levelDB or memoryKV) into the three namespaces
// spec.md §4.2 names.
func NewStore(kv KV) *Store {
	return &Store{
		events:      &table{db: kv, prefix: prefixEvent},
		bridgeTasks: &table{db: kv, prefix: prefixBridgeTask},
		lastBlocks:  &table{db: kv, prefix: prefixLastScannedBlock},
	}
}

// GetLastScannedBlock returns 0 if no checkpoint has been recorded yet,
// matching repository.py's get_last_scanned_block, which swallows
// RepositoryErrorOnGet and returns 0 so a first-ever scan starts at the
// configured genesis block instead of failing.
func (s *Store) GetLastScannedBlock(chainID uint64) (uint64, error) {
	key := lastBlockKey(chainID)
	raw, err := s.lastBlocks.Get(key)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	block, err := codec.DecodeLastScannedBlock(chainID, raw)
	if err != nil {
		return 0, err
	}
	return block.BlockNumber, nil
}

// SetLastScannedBlock persists the scanner's resume checkpoint for chainID.
func (s *Store) SetLastScannedBlock(chainID, blockNumber uint64) error {
	raw, err := codec.EncodeLastScannedBlock(domain.LastScannedBlock{ChainID: chainID, BlockNumber: blockNumber})
	if err != nil {
		return err
	}
	if err := s.lastBlocks.Put(lastBlockKey(chainID), raw); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSaveEventOperationError, err)
	}
	return nil
}

// GetEvent looks an event up by its AsKey().
func (s *Store) GetEvent(key string) (domain.Event, error) {
	raw, err := s.events.Get([]byte(key))
	if errors.Is(err, leveldb.ErrNotFound) {
		return domain.Event{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return codec.DecodeEvent(raw)
}

// SaveEvent persists event under its AsKey().
func (s *Store) SaveEvent(event domain.Event) error {
	raw, err := codec.EncodeEvent(event)
	if err != nil {
		return err
	}
	if err := s.events.Put([]byte(event.AsKey()), raw); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSaveEventOperationError, err)
	}
	return nil
}

// DeleteEvent removes an event by key.
func (s *Store) DeleteEvent(key string) error {
	if err := s.events.Delete([]byte(key)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeleteEventOperationError, err)
	}
	return nil
}

// IsEventStored reports whether event has already been recorded, mirroring
// repository.py's is_event_stored: it fetches the record under event's key
// and compares key and tx hash only. The rest of the payload is not
// compared, so a different payload under the same key counts as stored.
func (s *Store) IsEventStored(event domain.Event) bool {
	existing, err := s.GetEvent(event.AsKey())
	if err != nil {
		return false
	}
	return existing.AsKey() == event.AsKey() && existing.TxHash == event.TxHash
}

// IsEventRegistered reports whether event has been marked "registered" by
// SetEventAsRegistered.
func (s *Store) IsEventRegistered(event domain.Event) bool {
	existing, err := s.GetEvent(event.AsKey())
	if err != nil {
		return false
	}
	return existing.Handled == eventHandledRegistered
}

// SetEventAsRegistered flags event as registered once it has been published
// to the queue, so a restart does not republish it.
func (s *Store) SetEventAsRegistered(event domain.Event) error {
	event.Handled = eventHandledRegistered
	return s.SaveEvent(event)
}

// StoreEvent saves event if it is not already stored, reporting whether it
// was new. The scanner publishes every event not yet registered, whatever
// this returns, so a stored-but-unpublished event is retried.
func (s *Store) StoreEvent(event domain.Event) (isNew bool, err error) {
	if s.IsEventStored(event) {
		return false, nil
	}
	if err := s.SaveEvent(event); err != nil {
		return false, err
	}
	return true, nil
}

// GetBridgeTask looks a task up by BridgeTask.AsKey() (operation hash +
// event name), the lookup the rules engine's depends_on check performs.
func (s *Store) GetBridgeTask(key string) (domain.BridgeTask, error) {
	raw, err := s.bridgeTasks.Get([]byte(key))
	if errors.Is(err, leveldb.ErrNotFound) {
		return domain.BridgeTask{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.BridgeTask{}, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return codec.DecodeBridgeTask(raw)
}

// GetBridgeTasks returns every task currently recorded, used to resume
// FAILED tasks after a restart.
func (s *Store) GetBridgeTasks() ([]domain.BridgeTask, error) {
	it := s.bridgeTasks.NewIteratorWithPrefix(nil)
	defer it.Release()

	var tasks []domain.BridgeTask
	for it.Next() {
		value := make([]byte, len(it.Value()))
		copy(value, it.Value())
		task, err := codec.DecodeBridgeTask(value)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, it.Error()
}

// SaveBridgeTask persists task under its AsKey().
func (s *Store) SaveBridgeTask(task domain.BridgeTask) error {
	raw, err := codec.EncodeBridgeTask(task)
	if err != nil {
		return err
	}
	if err := s.bridgeTasks.Put([]byte(task.AsKey()), raw); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSaveEventOperationError, err)
	}
	return nil
}

// ResumeIncompleteBridgeTasks returns every task still in FAILED, the set
// consume_events.py's get_incomplete_event_tasks re-drives on startup
// ("if data['status'] != EventStatus.FAILED.value: continue").
func (s *Store) ResumeIncompleteBridgeTasks() ([]domain.BridgeTask, error) {
	all, err := s.GetBridgeTasks()
	if err != nil {
		return nil, err
	}
	var incomplete []domain.BridgeTask
	for _, t := range all {
		if t.Status == domain.StatusFailed {
			incomplete = append(incomplete, t)
		}
	}
	return incomplete, nil
}

func lastBlockKey(chainID uint64) []byte {
	return []byte(fmt.Sprintf("%d", chainID))
}
