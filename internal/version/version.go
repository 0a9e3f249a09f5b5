// Package version carries the product identity reported in outgoing
// messages.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

const (
	Product = "Trojita"
	Number  = "0.8"
)

// Platform describes the runtime the way the full User-Agent reports it.
func Platform() string {
	return fmt.Sprintf("Go/%s; %s/%s", strings.TrimPrefix(runtime.Version(), "go"), runtime.GOOS, runtime.GOARCH)
}

// UserAgent renders the header value. When full is false only the bare
// product name is revealed.
func UserAgent(full bool) string {
	if full {
		return fmt.Sprintf("%s/%s; %s", Product, Number, Platform())
	}
	return Product
}
