package words

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

const dayLayout = "2006-01-02"

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// NextReset is the start of the UTC day after t, when a new word is picked.
func NextReset(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// selector maps a day key to an index with HMAC-SHA256 keyed by the salt.
type selector struct {
	key []byte
}

func (s selector) index(day string, n int) int {
	if n <= 0 {
		return 0
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(day))
	return int(binary.BigEndian.Uint64(mac.Sum(nil)[:8]) % uint64(n))
}

// WordIndex returns the answer index for date's UTC day: HMAC(salt, YYYY-MM-DD) mod answersLen.
func WordIndex(date time.Time, salt string, answersLen int) int {
	return selector{key: []byte(salt)}.index(DateKey(date), answersLen)
}
