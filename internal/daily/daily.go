// internal/daily/daily.go
//
// Daily challenge board.
// Responsibilities:
//   - Date keys (YYYY-MM-DD, UTC) naming one shared board per day.
//   - A deterministic RNG seed per date via HMAC-SHA256(salt, date key), so
//     every player who starts the daily quiz on the same UTC date walks the
//     same shuffled country order. Changing the salt rotates all boards.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns a non-negative RNG seed that is stable for all instants on the
// same UTC date and salt.
func Seed(date time.Time, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	n := binary.BigEndian.Uint64(sum[:8])
	return int64(n & (1<<63 - 1))
}
