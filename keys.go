package tiercache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// KeyBuilder derives storage keys of the form
//
//	<app>:<domain>:<endpoint>:<hash>
//
// where hash is a 128-bit digest over the endpoint and its parameter bag.
// Hashing bounds key length and keeps raw parameter values out of storage
// keys. The endpoint doubles as the key's category segment.
type KeyBuilder struct {
	App    string
	Domain string
}

// DeriveKey returns a deterministic key for an endpoint and parameter bag.
// Parameter iteration order does not matter: keys are sorted, and slice
// values are sorted element-wise before joining. A nil or empty bag is valid.
func (b KeyBuilder) DeriveKey(endpoint string, params map[string]any) string {
	sum := sha256.Sum256([]byte(endpoint + ":" + canonicalParams(params)))
	return b.App + ":" + b.Domain + ":" + endpoint + ":" + hex.EncodeToString(sum[:16])
}

// CategoryFromKey extracts the category segment (third colon-delimited
// segment) from a derived key. Keys with fewer segments have no category and
// resolve to the default strategy.
func CategoryFromKey(key string) string {
	parts := strings.SplitN(key, ":", 4)
	if len(parts) < 4 {
		return ""
	}
	return parts[2]
}

// canonicalParams serializes a parameter bag as "k1=v1&k2=v2" with keys in
// lexicographic order.
func canonicalParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(valueString(params[k]))
	}
	return sb.String()
}

// valueString renders a single parameter value. Slices are sorted so that
// semantically equal sets serialize identically regardless of element order.
func valueString(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case []string:
		s := make([]string, len(vv))
		copy(s, vv)
		sort.Strings(s)
		return strings.Join(s, ",")
	case []any:
		s := make([]string, len(vv))
		for i, e := range vv {
			s[i] = fmt.Sprintf("%v", e)
		}
		sort.Strings(s)
		return strings.Join(s, ",")
	case []int:
		s := make([]string, len(vv))
		for i, e := range vv {
			s[i] = fmt.Sprintf("%d", e)
		}
		sort.Strings(s)
		return strings.Join(s, ",")
	case []float64:
		s := make([]string, len(vv))
		for i, e := range vv {
			s[i] = fmt.Sprintf("%v", e)
		}
		sort.Strings(s)
		return strings.Join(s, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}
