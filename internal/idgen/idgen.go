// Package idgen generates request and order identifiers.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// WithPrefix generates a random ID with a prefix (e.g. "req_").
// Result is prefix + 24 hex chars (12 random bytes).
func WithPrefix(prefix string) string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}

// OrderID synthesizes an order id from a timestamp, for payloads that omit
// one. Two calls in the same millisecond collide; prediction logging does not
// deduplicate, so a collision only makes two rows share an id.
func OrderID(now time.Time) string {
	return "ORD" + strconv.FormatInt(now.UnixMilli(), 10)
}
