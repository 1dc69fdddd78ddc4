package state

import (
	"fmt"
)

var (
	hostTimestampKey = []byte("host/timestamp")
	hostNoncePrefix  = []byte("host/nonce/")
)

func hostNonceKey(addr [20]byte) []byte {
	buf := make([]byte, len(hostNoncePrefix)+len(addr))
	copy(buf, hostNoncePrefix)
	copy(buf[len(hostNoncePrefix):], addr[:])
	return buf
}

// LastTimestamp returns the most recent logical timestamp handed to a call.
func (m *Manager) LastTimestamp() (uint64, error) {
	var ts uint64
	if _, err := m.KVGet(hostTimestampKey, &ts); err != nil {
		return 0, fmt.Errorf("state: load timestamp: %w", err)
	}
	return ts, nil
}

// SetLastTimestamp records the logical timestamp of the current call.
func (m *Manager) SetLastTimestamp(ts uint64) error {
	return m.KVPut(hostTimestampKey, ts)
}

// Nonce returns the next expected signed-call nonce for addr.
func (m *Manager) Nonce(addr [20]byte) (uint64, error) {
	var nonce uint64
	if _, err := m.KVGet(hostNonceKey(addr), &nonce); err != nil {
		return 0, fmt.Errorf("state: load nonce: %w", err)
	}
	return nonce, nil
}

// SetNonce stores the next expected signed-call nonce for addr.
func (m *Manager) SetNonce(addr [20]byte, nonce uint64) error {
	return m.KVPut(hostNonceKey(addr), nonce)
}
