package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/asleep/internal/model"
	"github.com/theirongolddev/asleep/internal/source"
	"github.com/theirongolddev/asleep/internal/store"
)

// Origin says where a loaded payload came from.
type Origin string

const (
	OriginAPI   Origin = "api"
	OriginCache Origin = "cache"
	OriginFiles Origin = "files"
)

// Fetcher retrieves a raw average-stats payload covering the given number
// of days up to today.
type Fetcher interface {
	Fetch(ctx context.Context, days int) ([]byte, error)
}

// FetchCache persists the last raw payload for offline use.
type FetchCache interface {
	SaveFetch(f store.Fetch) error
	LastFetch() (*store.Fetch, error)
}

// LoadOptions controls where Load reads its payload from.
type LoadOptions struct {
	Days    int
	Inputs  []string // payload files or directories; bypasses the API
	Offline bool     // serve from Cache without fetching

	Fetcher  Fetcher
	Cache    FetchCache
	Progress ProgressFunc
}

// LoadResult holds the output of the full loading pipeline.
type LoadResult struct {
	Fetch     *model.FetchResult
	Report    *model.Report
	LatestID  string
	Origin    Origin
	FetchedAt time.Time
	Stale     bool // API fetch failed and the cache was used instead

	TotalFiles  int
	ParsedFiles int
	FileErrors  int
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// ErrNoSource is returned when neither inputs, a fetcher, nor a cache is configured.
var ErrNoSource = errors.New("pipeline: no payload source configured")

// Load obtains a payload from input files, the API, or the cache, then
// converts it into a report.
func Load(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	var (
		result *LoadResult
		err    error
	)

	switch {
	case len(opts.Inputs) > 0:
		result, err = loadFiles(opts.Inputs, opts.Progress)
	case opts.Offline:
		result, err = loadCache(opts.Cache)
	default:
		result, err = loadAPI(ctx, opts)
	}
	if err != nil {
		return nil, err
	}

	if result.Report == nil {
		if result.Report, err = Convert(result.Fetch); err != nil {
			return nil, err
		}
	}
	result.LatestID = source.LatestSessionID(result.Fetch)
	return result, nil
}

func loadAPI(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	if opts.Fetcher == nil {
		if opts.Cache != nil {
			return loadCache(opts.Cache)
		}
		return nil, ErrNoSource
	}

	slog.Info("fetching sleep data", "days", opts.Days)
	payload, fetchErr := opts.Fetcher.Fetch(ctx, opts.Days)
	if fetchErr != nil {
		if opts.Cache == nil || ctx.Err() != nil {
			return nil, fetchErr
		}
		cached, err := loadCache(opts.Cache)
		if err != nil {
			return nil, fetchErr
		}
		slog.Warn("fetch failed, using cached payload", "error", fetchErr, "fetched_at", cached.FetchedAt)
		cached.Stale = true
		return cached, nil
	}

	fr, err := source.Parse(payload)
	if err != nil {
		return nil, err
	}
	// Only a payload that converts may replace the cached one.
	report, err := Convert(fr)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if opts.Cache != nil {
		if err := opts.Cache.SaveFetch(store.Fetch{FetchedAt: now, Days: opts.Days, Payload: payload}); err != nil {
			slog.Warn("caching payload", "error", err)
		}
	}
	return &LoadResult{Fetch: fr, Report: report, Origin: OriginAPI, FetchedAt: now}, nil
}

func loadCache(cache FetchCache) (*LoadResult, error) {
	if cache == nil {
		return nil, ErrNoSource
	}
	f, err := cache.LastFetch()
	if err != nil {
		return nil, fmt.Errorf("reading cached payload: %w", err)
	}
	fr, err := source.Parse(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("cached payload: %w", err)
	}
	return &LoadResult{Fetch: fr, Origin: OriginCache, FetchedAt: f.FetchedAt}, nil
}

// loadFiles parses every discovered payload with a bounded worker pool and
// merges them in path order.
func loadFiles(inputs []string, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.Discover(inputs)
	if err != nil {
		return nil, fmt.Errorf("discovering inputs: %w", err)
	}

	result := &LoadResult{Origin: OriginFiles, TotalFiles: len(files)}
	if len(files) == 0 {
		return nil, fmt.Errorf("no payload files in %v: %w", inputs, source.ErrEmptyPayload)
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]source.ParseResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(files))
				}
			}
		}()
	}

	wg.Wait()

	parsed := make([]*model.FetchResult, 0, len(results))
	for _, pr := range results {
		if pr.Err != nil {
			result.FileErrors++
			slog.Warn("skipping payload", "path", pr.File.Path, "error", pr.Err)
			continue
		}
		result.ParsedFiles++
		parsed = append(parsed, pr.Result)
		if pr.File.ModTime.After(result.FetchedAt) {
			result.FetchedAt = pr.File.ModTime
		}
	}
	if result.ParsedFiles == 0 {
		return nil, fmt.Errorf("all %d payload files failed to parse: %w", len(files), results[0].Err)
	}

	result.Fetch = source.Merge(parsed...)
	return result, nil
}
