package donation

import (
	"encoding/binary"
	"fmt"
)

var (
	countKey     = []byte("donation/count")
	recordPrefix = []byte("donation/record/")
	totalPrefix  = []byte("donation/total/")
)

func recordKey(id uint64) []byte {
	key := make([]byte, len(recordPrefix)+8)
	copy(key, recordPrefix)
	binary.BigEndian.PutUint64(key[len(recordPrefix):], id)
	return key
}

func totalKey(recipient [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", totalPrefix, recipient))
}
