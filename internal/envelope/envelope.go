// Package envelope frames a cached payload with its absolute expiry so that
// stores without per-entry TTLs (e.g. bigcache) can still honor one.
package envelope

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

// Frame: magic(4) | ver(1) | expiresAt unix-nano (i64 be) | payload(rest)
const (
	version byte = 1
	header       = 4 + 1 + 8
)

var (
	ErrCorrupt = errors.New("envelope: corrupt entry")
	magic4     = [...]byte{'T', 'C', 'H', 'E'}
)

func Encode(expiresAt time.Time, payload []byte) []byte {
	b := make([]byte, header, header+len(payload))
	copy(b, magic4[:])
	b[4] = version
	binary.BigEndian.PutUint64(b[5:], uint64(expiresAt.UnixNano()))
	return append(b, payload...)
}

func Decode(b []byte) (expiresAt time.Time, payload []byte, err error) {
	if len(b) < header || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return time.Time{}, nil, ErrCorrupt
	}
	ns := int64(binary.BigEndian.Uint64(b[5:header]))
	return time.Unix(0, ns), b[header:], nil
}
