// Package pipeline runs the complete model preparation flow shared by the
// CLI and the HTTP API:
//
//  1. Fetch: download the model archive from the zoo (or reuse a cached
//     copy) and unpack it safely.
//  2. Rewrite: load the frozen graph, collapse framework namespaces into
//     plugin nodes, and prune the stale graph outputs.
//  3. Export: write the rewritten graph in interchange form.
//
// Centralizing the flow here keeps both entry points behaving the same:
// unsupported model names fail before any network or filesystem activity,
// and the downloaded archive is deleted once its contents are extracted.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/modelprep/modelprep/pkg/archive"
	"github.com/modelprep/modelprep/pkg/cache"
	"github.com/modelprep/modelprep/pkg/download"
	"github.com/modelprep/modelprep/pkg/graph"
	"github.com/modelprep/modelprep/pkg/ir"
	"github.com/modelprep/modelprep/pkg/model"
)

// Options configures a single preparation run.
type Options struct {
	// Model is the model-zoo identifier to prepare.
	Model string

	// ModelsDir is where the archive is downloaded and the model
	// extracted. Created if missing.
	ModelsDir string

	// ZooURL overrides the default model zoo base URL.
	ZooURL string

	// Refresh bypasses the archive cache and forces a fresh download.
	Refresh bool

	// PreserveOwner applies archive uid/gid to extracted files. Only
	// meaningful when running as root.
	PreserveOwner bool

	// Progress, when set, receives download byte counts. Only called
	// when the server reports a content length.
	Progress download.Progress
}

// Result reports what a preparation run produced.
type Result struct {
	// Model is the prepared model's metadata.
	Model *model.Data

	// GraphPath is the extracted frozen-graph location.
	GraphPath string

	// ConvertedPath is the interchange file written by the run.
	ConvertedPath string

	// NodesBefore and NodesAfter count graph nodes around the rewrite.
	NodesBefore, NodesAfter int

	// CacheHit reports whether the archive came from cache instead of
	// the network.
	CacheHit bool

	// Stats holds per-stage wall times.
	Stats Stats
}

// Stats holds per-stage timings for logging and API responses.
type Stats struct {
	FetchTime   time.Duration
	RewriteTime time.Duration
	ExportTime  time.Duration
}

// Runner executes preparation runs. It is stateless apart from the cache
// and logger, so one Runner can serve concurrent runs with different
// options.
type Runner struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Logger   *log.Logger
}

// NewRunner creates a runner. A nil cache disables archive caching and a
// nil logger falls back to the default logger.
func NewRunner(c cache.Cache, ttl time.Duration, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, CacheTTL: ttl, Logger: logger}
}

// Prepare runs the full fetch → rewrite → export flow for opts.Model.
//
// The model name is validated first: unsupported names return an
// UNSUPPORTED_MODEL error before the models directory is created or any
// request is made.
func (r *Runner) Prepare(ctx context.Context, opts Options) (*Result, error) {
	data, err := model.Lookup(opts.Model)
	if err != nil {
		return nil, err
	}

	result := &Result{Model: data}

	fetchStart := time.Now()
	if err := r.fetch(ctx, data, opts, result); err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	result.Stats.FetchTime = time.Since(fetchStart)
	result.GraphPath = data.GraphPath(opts.ModelsDir)

	r.Logger.Info("fetched model",
		"model", data.Name,
		"cache", result.CacheHit,
		"duration", result.Stats.FetchTime)

	rewriteStart := time.Now()
	g, err := r.rewrite(data, result)
	if err != nil {
		return nil, fmt.Errorf("rewrite: %w", err)
	}
	result.Stats.RewriteTime = time.Since(rewriteStart)

	r.Logger.Info("rewrote graph",
		"model", data.Name,
		"nodes_before", result.NodesBefore,
		"nodes_after", result.NodesAfter,
		"duration", result.Stats.RewriteTime)

	exportStart := time.Now()
	result.ConvertedPath = data.ConvertedPath(opts.ModelsDir)
	if err := ir.ExportFile(g, data.InputName, data.OutputName, result.ConvertedPath); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Stats.ExportTime = time.Since(exportStart)

	r.Logger.Info("exported interchange file",
		"model", data.Name,
		"path", result.ConvertedPath,
		"duration", result.Stats.ExportTime)

	return result, nil
}

// Convert rewrites a frozen graph already on disk, skipping the download
// and extraction stages. in is the frozen-graph path, out the interchange
// destination.
func (r *Runner) Convert(ctx context.Context, modelName, in, out string) (*Result, error) {
	data, err := model.Lookup(modelName)
	if err != nil {
		return nil, err
	}

	g, err := graph.ReadGraphFile(in)
	if err != nil {
		return nil, err
	}

	result := &Result{Model: data, GraphPath: in, ConvertedPath: out}
	result.NodesBefore = g.NodeCount()

	rewriteStart := time.Now()
	if err := g.CollapseNamespaces(data.Rules()); err != nil {
		return nil, err
	}
	g.Remove(g.Outputs(), false)
	result.NodesAfter = g.NodeCount()
	result.Stats.RewriteTime = time.Since(rewriteStart)

	if err := ir.ExportFile(g, data.InputName, data.OutputName, out); err != nil {
		return nil, err
	}

	r.Logger.Info("converted graph",
		"model", data.Name,
		"nodes_before", result.NodesBefore,
		"nodes_after", result.NodesAfter,
		"path", out)

	return result, nil
}

// fetch ensures the extracted model directory exists under ModelsDir,
// downloading (or restoring from cache) and unpacking the archive if
// needed. The archive file is deleted after extraction either way.
func (r *Runner) fetch(ctx context.Context, data *model.Data, opts Options, result *Result) error {
	if err := os.MkdirAll(opts.ModelsDir, 0755); err != nil {
		return err
	}

	graphPath := data.GraphPath(opts.ModelsDir)
	if _, err := os.Stat(graphPath); err == nil {
		r.Logger.Debug("model already extracted", "path", graphPath)
		return nil
	}

	archivePath := data.ArchivePath(opts.ModelsDir)
	if err := r.obtainArchive(ctx, data, opts, archivePath, result); err != nil {
		return err
	}

	if err := archive.Extract(archivePath, opts.ModelsDir, archive.Options{
		PreserveOwner: opts.PreserveOwner,
	}); err != nil {
		return err
	}

	// The archive has served its purpose once extracted.
	return os.Remove(archivePath)
}

// obtainArchive places the model archive at archivePath, preferring the
// cache unless Refresh is set. Fresh downloads are written back to the
// cache for the next run.
func (r *Runner) obtainArchive(ctx context.Context, data *model.Data, opts Options, archivePath string, result *Result) error {
	url := data.ArchiveURL(opts.ZooURL)
	key := cache.ArchiveKey(url)

	if !opts.Refresh {
		blob, hit, err := r.Cache.Get(ctx, key)
		if err != nil {
			r.Logger.Warn("archive cache read failed", "err", err)
		} else if hit {
			result.CacheHit = true
			return os.WriteFile(archivePath, blob, 0644)
		}
	}

	if err := download.File(ctx, url, archivePath, download.Options{
		Progress: opts.Progress,
	}); err != nil {
		return err
	}

	blob, err := os.ReadFile(archivePath)
	if err != nil {
		return err
	}
	if err := r.Cache.Set(ctx, key, blob, r.CacheTTL); err != nil {
		r.Logger.Warn("archive cache write failed", "err", err)
	}
	return nil
}

// rewrite loads the frozen graph and applies the model's plugin table,
// then prunes the pre-rewrite outputs. Cascade removal stays off: nearly
// every node sits upstream of the old outputs and pruning must only drop
// the output nodes themselves.
func (r *Runner) rewrite(data *model.Data, result *Result) (*graph.Graph, error) {
	g, err := graph.ReadGraphFile(result.GraphPath)
	if err != nil {
		return nil, err
	}
	result.NodesBefore = g.NodeCount()

	if err := g.CollapseNamespaces(data.Rules()); err != nil {
		return nil, err
	}
	g.Remove(g.Outputs(), false)

	result.NodesAfter = g.NodeCount()
	return g, nil
}
