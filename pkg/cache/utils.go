package cache

import (
	"fmt"
	"strings"
)

// Key builds a colon-separated cache key from a base and its parameters.
func Key(base string, params ...interface{}) string {
	if len(params) == 0 {
		return base
	}
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, base)
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%v", p))
	}
	return strings.Join(parts, ":")
}
