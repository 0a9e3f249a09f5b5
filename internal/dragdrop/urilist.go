package dragdrop

import (
	"net/url"
	"strings"
)

// ParseURIList extracts local file paths from a text/uri-list payload
// (RFC 2483: one URI per CRLF-terminated line, "#" lines are comments).
// Non-file URLs and file URLs pointing at other hosts are skipped.
func ParseURIList(data []byte) []string {
	var paths []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, err := url.Parse(line)
		if err != nil || u.Scheme != "file" {
			continue
		}
		if u.Host != "" && u.Host != "localhost" {
			continue
		}
		if u.Path == "" {
			continue
		}
		paths = append(paths, u.Path)
	}
	return paths
}
