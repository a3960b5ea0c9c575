package source

import (
	"time"

	"github.com/theirongolddev/asleep/internal/model"
)

// DiscoveredFile is an exported average-stats payload found on disk.
type DiscoveredFile struct {
	Path    string
	Name    string
	ModTime time.Time
	Size    int64
}

// ParseResult holds the output of parsing a single payload file.
type ParseResult struct {
	File   DiscoveredFile
	Result *model.FetchResult
	Err    error
}
