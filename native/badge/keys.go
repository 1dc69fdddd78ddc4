package badge

import (
	"encoding/binary"
	"fmt"
)

var (
	metadataKey   = []byte("badge/metadata")
	pausedKey     = []byte("badge/paused")
	nextIDKey     = []byte("badge/next")
	supplyKey     = []byte("badge/supply")
	tokenPrefix   = []byte("badge/token/")
	uriPrefix     = []byte("badge/uri/")
	holdingPrefix = []byte("badge/holdings/")
)

func tokenIDKey(prefix []byte, id uint32) []byte {
	key := make([]byte, len(prefix)+4)
	copy(key, prefix)
	binary.BigEndian.PutUint32(key[len(prefix):], id)
	return key
}

func tokenKey(id uint32) []byte { return tokenIDKey(tokenPrefix, id) }

func uriKey(id uint32) []byte { return tokenIDKey(uriPrefix, id) }

func holdingsKey(owner [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", holdingPrefix, owner))
}
