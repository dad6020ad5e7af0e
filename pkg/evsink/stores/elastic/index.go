package elastic

import (
	"fmt"
	"strings"
)

const (
	illegalIndexSymbols      = `\/*?"<>| ,#:`
	illegalIndexStartSymbols = `-_+`
	maxIndexNameBytes        = 255
)

// IndexName validates a collection name as an index name. Collections are
// already lowercased by the writer; IndexName lowercases again so it can be
// used on its own.
func IndexName(collection string) (string, error) {
	out := strings.ToLower(collection)
	if out == "" || out == "." || out == ".." {
		return "", fmt.Errorf("index name (%v) can't be empty, . or ..", out)
	}
	if strings.ContainsAny(out, illegalIndexSymbols) {
		return "", fmt.Errorf("index name (%v) can't contain symbols: %v", out, illegalIndexSymbols)
	}
	if strings.ContainsRune(illegalIndexStartSymbols, rune(out[0])) {
		return "", fmt.Errorf("index name (%v) can't start with: %v", out, illegalIndexStartSymbols)
	}
	if len(out) > maxIndexNameBytes {
		return "", fmt.Errorf("index name (%v...) is longer than %d bytes", out[:32], maxIndexNameBytes)
	}
	return out, nil
}
