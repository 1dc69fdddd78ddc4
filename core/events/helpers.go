package events

import (
	"fmt"
	"strings"

	"github.com/lober-org/welovedogs/crypto"
)

func formatAddress(raw [20]byte) string {
	return crypto.AddressFromRaw(raw).String()
}

func attrAddress(attrs map[string]string, key string) ([20]byte, error) {
	value := strings.TrimSpace(attrs[key])
	if value == "" {
		return [20]byte{}, fmt.Errorf("events: missing %s", key)
	}
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("events: %s: %w", key, err)
	}
	return addr, nil
}
