package flomo

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// signSecret is the fixed key the Flomo web client appends before hashing.
const signSecret = "dbbc3dd73364b4084c3a69346e0ce2b2"

// Sign computes the request signature the Flomo API expects: parameters
// sorted by key, joined as k=v& (slice values expand to k[]=v1&k[]=v2&),
// the fixed secret appended, and the whole string MD5-hashed. Empty string
// values are skipped; numeric zero values are kept.
func Sign(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
			continue
		case string:
			if v == "" {
				continue
			}
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(v)
			b.WriteString("&")
		case []string:
			for _, item := range v {
				b.WriteString(k)
				b.WriteString("[]=")
				b.WriteString(item)
				b.WriteString("&")
			}
		default:
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(fmt.Sprint(v))
			b.WriteString("&")
		}
	}

	s := strings.TrimSuffix(b.String(), "&") + signSecret
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
