package tiercache

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	metaPrefix  = "meta:"
	stalePrefix = "stale:"

	// defaultMetadataTTL bounds how long per-key bookkeeping outlives the
	// value it describes. Independent of the value's own TTL.
	defaultMetadataTTL = 24 * time.Hour
)

// Metadata is per-key bookkeeping stored in the shared tier under
// "meta:<key>". Used only for observability and GC; the read path never
// consults it.
type Metadata struct {
	Category   string    `msgpack:"c"`
	Priority   Priority  `msgpack:"p"`
	StoredAt   time.Time `msgpack:"at"`
	TTLSeconds int64     `msgpack:"ttl"`
	// SizeBytes is the encoded payload size, approximate from the cache's
	// point of view (the backing store may add its own overhead).
	SizeBytes int `msgpack:"sz"`
}

func metaKey(key string) string  { return metaPrefix + key }
func staleKey(key string) string { return stalePrefix + key }

func encodeMetadata(m Metadata) ([]byte, error) {
	return msgpack.Marshal(m)
}

func decodeMetadata(b []byte) (Metadata, error) {
	var m Metadata
	err := msgpack.Unmarshal(b, &m)
	return m, err
}
