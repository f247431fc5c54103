package util

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// ArgsKey returns a deterministic storage key for a descriptor that carries
// fetch arguments: base + ":" + a short hash over the JSON encoding of args.
// encoding/json sorts map keys, so equal argument tuples always hash equal.
// Arguments that cannot be marshaled fall back to their fmt representation.
func ArgsKey(base string, args []any) string {
	b, err := json.Marshal(args)
	if err != nil {
		b = []byte(fmt.Sprint(args...))
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%s:%x", base, sum)[:len(base)+1+16] // base + ":" + first 16 hex chars
}
