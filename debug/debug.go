package debug

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"
)

type debug struct {
	Resolve bool
	Codec   bool
	Cache   bool
}

var d *debug

func init() {
	d = &debug{}
	d.Resolve = boolEnv("BINDTREE_DEBUG_RESOLVE")
	d.Codec = boolEnv("BINDTREE_DEBUG_CODEC")
	d.Cache = boolEnv("BINDTREE_DEBUG_CACHE")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

// Resolve traces path translation steps.
func Resolve() bool {
	return d.Resolve
}

// Codec traces value codec selection.
func Codec() bool {
	return d.Codec
}

// Cache traces context and codec cache misses.
func Cache() bool {
	return d.Cache
}

func Logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}

func JSON(v any) string {
	d, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(d)
}
