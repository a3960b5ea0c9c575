// Package source reads Asleep average-stats payloads from disk or memory.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/theirongolddev/asleep/internal/model"
)

// ErrEmptyPayload is returned for a payload with no content.
var ErrEmptyPayload = errors.New("source: empty payload")

// Parse decodes an average-stats payload. A payload without a "result"
// object decodes successfully with a nil Result; rejecting it is left to
// the converter.
func Parse(data []byte) (*model.FetchResult, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	var fr model.FetchResult
	if err := json.Unmarshal(data, &fr); err != nil {
		return nil, fmt.Errorf("source: decoding payload: %w", err)
	}
	return &fr, nil
}

// ReadFile parses the payload stored at path.
func ReadFile(path string) (*model.FetchResult, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied input path
	if err != nil {
		return nil, err
	}
	fr, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fr, nil
}

// ParseFile reads and parses a discovered payload file.
func ParseFile(df DiscoveredFile) ParseResult {
	fr, err := ReadFile(df.Path)
	return ParseResult{File: df, Result: fr, Err: err}
}

// LatestSessionID returns the last non-empty session id in API order.
func LatestSessionID(fr *model.FetchResult) string {
	if fr == nil || fr.Result == nil {
		return ""
	}
	sessions := fr.Result.SleptSessions
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i].ID != "" {
			return sessions[i].ID
		}
	}
	return ""
}

// Merge combines several payloads into one. Sessions are deduplicated by
// id, a later payload replacing an earlier copy in place. Sessions without
// an id are always kept. The last non-empty average-stats record wins.
// The merged payload has no result object only if none of the inputs had one.
func Merge(results ...*model.FetchResult) *model.FetchResult {
	var merged *model.ResultBody
	index := make(map[string]int)

	for _, fr := range results {
		if fr == nil || fr.Result == nil {
			continue
		}
		if merged == nil {
			merged = &model.ResultBody{}
		}
		for _, s := range fr.Result.SleptSessions {
			if s.ID == "" {
				merged.SleptSessions = append(merged.SleptSessions, s)
				continue
			}
			if i, ok := index[s.ID]; ok {
				merged.SleptSessions[i] = s
				continue
			}
			index[s.ID] = len(merged.SleptSessions)
			merged.SleptSessions = append(merged.SleptSessions, s)
		}
		if !fr.Result.AverageStats.IsEmpty() {
			merged.AverageStats = fr.Result.AverageStats
		}
	}

	return &model.FetchResult{Result: merged}
}
