package model

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// generateID returns a 32-char hex id: 8 bytes of unix millis followed by 8
// random bytes, so ids sort by creation time.
func generateID() string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(time.Now().UTC().UnixMilli()))
	_, _ = rand.Read(buf[8:])
	return hex.EncodeToString(buf[:])
}
