package state

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/lober-org/welovedogs/storage"
)

// Manager provides the key-value view native contracts operate on. Writes are
// held in an in-memory journal until Commit flushes them to the backing
// database in a single batch; Discard drops them. A Manager therefore scopes
// exactly one host call.
//
// Manager is not safe for concurrent use.
type Manager struct {
	db      storage.Database
	pending map[string][]byte
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, pending: make(map[string][]byte)}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) read(hashed []byte) ([]byte, error) {
	if data, ok := m.pending[string(hashed)]; ok {
		return data, nil
	}
	if m.db == nil {
		return nil, nil
	}
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 so callers can use readable prefixes
// without worrying about their length.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.pending[string(kvKey(key))] = encoded
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state. Uncommitted writes of the current call are visible.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.read(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.read(kvKey(key))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}

// Dirty returns the number of keys written since the last Commit or Discard.
func (m *Manager) Dirty() int {
	return len(m.pending)
}

// Commit flushes the journal to the backing database atomically and resets it.
func (m *Manager) Commit() error {
	if len(m.pending) == 0 {
		return nil
	}
	if m.db == nil {
		return fmt.Errorf("kv: database not configured")
	}
	keys := make([]string, 0, len(m.pending))
	for key := range m.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	batch := storage.NewBatch()
	for _, key := range keys {
		batch.Put([]byte(key), m.pending[key])
	}
	if err := m.db.Write(batch); err != nil {
		return err
	}
	m.pending = make(map[string][]byte)
	return nil
}

// Discard drops every uncommitted write.
func (m *Manager) Discard() {
	m.pending = make(map[string][]byte)
}
