// Package discovery runs the application scanners over a home directory,
// scores what they find with the provider validators and assembles the
// redacted scan report.
package discovery

import (
	"context"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/systmms/aicred/internal/logging"
	"github.com/systmms/aicred/internal/metrics"
	"github.com/systmms/aicred/internal/validators"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

// DefaultMaxFileSize caps how much of a single file is read.
const DefaultMaxFileSize int64 = 1 << 20

// Options configures one scan.
type Options struct {
	// Root is the directory to scan. Empty means the caller's home directory.
	Root string

	// MaxFileSize skips larger files. Zero means DefaultMaxFileSize.
	MaxFileSize int64

	// OnlyProviders keeps only credentials for these providers (validator
	// name or provider id). ExcludeProviders is applied after it.
	OnlyProviders    []string
	ExcludeProviders []string

	// IncludeFullValues retains raw secrets in protected memory, reachable
	// through DiscoveredCredential.RawValue.
	IncludeFullValues bool

	// Concurrency bounds the number of scanners running at once. Zero means
	// GOMAXPROCS.
	Concurrency int
}

func (o Options) withDefaults() Options {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.GOMAXPROCS(0)
	}
	return o
}

// Orchestrator ties a validator registry to a scanner registry. It holds no
// per-scan state, so one Orchestrator may serve concurrent scans.
type Orchestrator struct {
	validators *plugin.ValidatorRegistry
	scanners   *plugin.ScannerRegistry
	logger     *logging.Logger
	metrics    *metrics.ScanMetrics
	now        func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the diagnostic logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics records scan counters.
func WithMetrics(m *metrics.ScanMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator. The registries must not be modified while a
// scan is running.
func New(v *plugin.ValidatorRegistry, s *plugin.ScannerRegistry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		validators: v,
		scanners:   s,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Scan discovers credentials under opts.Root. Only an unusable root or
// context cancellation fail the scan; per-file problems are recorded as
// soft failures on the result.
func (o *Orchestrator) Scan(ctx context.Context, opts Options) (*credential.ScanResult, error) {
	started := o.now()
	opts = opts.withDefaults()

	root, err := ResolveRoot(opts.Root)
	if err != nil {
		o.metrics.RecordScan("error", 0)
		return nil, err
	}

	vals := plugin.FilterValidators(o.validators, opts.OnlyProviders, opts.ExcludeProviders)
	filter := newProviderFilter(o.validators, opts.OnlyProviders, opts.ExcludeProviders)
	scanners := o.scanners.List()
	o.logger.Debug("scanning %s with %d scanners and %d validators", root, len(scanners), vals.Len())

	runs := make([]*scannerRun, len(scanners))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, s := range scanners {
		i, s := i, s
		g.Go(func() error {
			runs[i] = o.runScanner(gctx, s, root, opts.MaxFileSize)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		o.metrics.RecordScan("cancelled", o.now().Sub(started).Seconds())
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &credential.ScanResult{
		ScanStartedAt:    started,
		HomeDirectory:    root,
		ProvidersScanned: plugin.ProviderIDs(vals),
	}
	o.merge(result, scanners, runs, vals, filter, opts.IncludeFullValues)
	result.ScanCompletedAt = o.now()

	o.record(result)
	o.logger.Debug("scan found %d keys in %d config instances (%d files, %d directories, %d soft failures)",
		len(result.Keys), len(result.ConfigInstances), result.FilesScanned, result.DirectoriesScanned, len(result.SoftFailures))
	return result, nil
}

// PlannedScanner lists the paths one scanner would examine.
type PlannedScanner struct {
	Scanner string
	AppName string
	Paths   []string
}

// Plan resolves the root and reports each scanner's candidate paths without
// reading any file.
func (o *Orchestrator) Plan(root string) (string, []PlannedScanner, error) {
	resolved, err := ResolveRoot(root)
	if err != nil {
		return "", nil, err
	}
	var out []PlannedScanner
	for _, s := range o.scanners.List() {
		out = append(out, PlannedScanner{
			Scanner: s.Name(),
			AppName: s.AppName(),
			Paths:   s.CandidatePaths(resolved),
		})
	}
	return resolved, out, nil
}

// merge is the single point where scanner outputs are combined, in registry
// order.
func (o *Orchestrator) merge(result *credential.ScanResult, scanners []plugin.Scanner, runs []*scannerRun,
	vals *plugin.ValidatorRegistry, filter providerFilter, includeFull bool) {
	files := make(map[string]struct{})
	dirs := make(map[string]struct{})
	instances := make(map[string]struct{})
	discoveredAt := o.now()
	sealed := make(map[string]credential.DiscoveredCredential)

	var keys []credential.DiscoveredCredential
	for i, s := range scanners {
		run := runs[i]
		for _, f := range run.files {
			files[f] = struct{}{}
		}
		for _, d := range run.dirs {
			dirs[d] = struct{}{}
		}
		result.SoftFailures = append(result.SoftFailures, run.failures...)
		o.metrics.RecordFiles(s.Name(), len(run.files))

		for _, cfg := range run.configs {
			if _, dup := instances[cfg.InstanceID]; dup {
				continue
			}
			instances[cfg.InstanceID] = struct{}{}

			inst := credential.ConfigInstance{
				InstanceID:   cfg.InstanceID,
				AppName:      s.Name(),
				ConfigPath:   cfg.ConfigPath,
				DiscoveredAt: discoveredAt,
				Metadata:     copyMeta(cfg.Metadata),
			}
			for _, c := range cfg.Candidates {
				provider, confidence := classify(c, cfg.ConfigPath, vals)
				if !filter.allows(provider) {
					continue
				}
				cred := o.capture(sealed, c.Value, cfg.ConfigPath, includeFull)
				cred.Provider = provider
				cred.Inferred = c.Provider == "" && provider != ""
				cred.Confidence = confidence
				cred.ValueType = c.ValueType
				if cred.ValueType == "" {
					cred.ValueType = credential.ValueTypeAPIKey
				}
				cred.Source = credential.Location{Path: cfg.ConfigPath, Line: c.Line, Column: c.Column}
				cred.Environment = cfg.Environment
				cred.DiscoveredAt = discoveredAt
				cred.Metadata = nil
				if c.Field != "" {
					cred.Metadata = map[string]string{"field": c.Field}
				}
				inst.Keys = append(inst.Keys, cred)
				keys = append(keys, cred)
			}
			inst.Keys = credential.Deduplicate(inst.Keys)
			if len(inst.Keys) == 0 && len(inst.Metadata) == 0 {
				continue
			}
			if inst.Keys == nil {
				inst.Keys = []credential.DiscoveredCredential{}
			}
			result.ConfigInstances = append(result.ConfigInstances, inst)
		}
	}

	result.Keys = credential.Deduplicate(keys)
	if result.Keys == nil {
		result.Keys = []credential.DiscoveredCredential{}
	}
	if result.ConfigInstances == nil {
		result.ConfigInstances = []credential.ConfigInstance{}
	}
	result.FilesScanned = len(files)
	result.DirectoriesScanned = len(dirs)
}

// capture seals value at most once per (value, file) pair; duplicates share
// the enclave so that releasing the surviving entries releases every copy.
func (o *Orchestrator) capture(sealed map[string]credential.DiscoveredCredential, value, path string,
	includeFull bool) credential.DiscoveredCredential {
	if includeFull {
		key := credential.Hash(value) + "\x00" + path
		if cred, ok := sealed[key]; ok {
			return cred
		}
		cred, err := credential.FromFull(value)
		if err == nil {
			sealed[key] = cred
			return cred
		}
		o.logger.Warn("could not protect credential %s, keeping only its hash: %v",
			logging.ShortHash(credential.Hash(value)), err)
	}
	return credential.FromRedactedPreview(credential.Hash(value), credential.Preview(value))
}

func (o *Orchestrator) record(result *credential.ScanResult) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordScan("ok", result.Duration().Seconds())
	for _, k := range result.Keys {
		o.metrics.RecordCredential(k.Provider, k.Confidence.String())
	}
	for _, inst := range result.ConfigInstances {
		o.metrics.RecordConfigInstance(inst.AppName)
	}
	for _, f := range result.SoftFailures {
		o.metrics.RecordSoftFailure(f.Scanner, f.Kind)
	}
}

// classify attributes a candidate to a provider and confidence.
//
// A tagged candidate keeps its provider; its confidence comes from the
// scanner, else from that provider's validator, else from the generic
// heuristic. An untagged candidate goes to the best-scoring validator that
// handles the file, the first registered winning ties, unless even the best
// score is below the Medium threshold.
func classify(c plugin.Candidate, path string, vals *plugin.ValidatorRegistry) (string, credential.Confidence) {
	if c.Provider != "" {
		if c.Confidence != nil {
			return c.Provider, *c.Confidence
		}
		if v, ok := plugin.ByProvider(vals, c.Provider); ok {
			return v.ProviderID(), credential.ConfidenceFromScore(v.ConfidenceScore(c.Value))
		}
		return c.Provider, credential.ConfidenceFromScore(validators.GenericScore(c.Value))
	}

	var best plugin.Validator
	bestScore := -1.0
	for _, v := range vals.Handling(path) {
		if score := untaggedScore(v, c.Value); score > bestScore {
			best, bestScore = v, score
		}
	}
	if best == nil || bestScore < credential.MediumThreshold {
		return "", credential.ConfidenceLow
	}
	return best.ProviderID(), credential.ConfidenceFromScore(bestScore)
}

func untaggedScore(v plugin.Validator, value string) float64 {
	if u, ok := v.(plugin.UntaggedScorer); ok {
		return u.UntaggedScore(value)
	}
	return v.ConfidenceScore(value)
}

// providerFilter applies the provider allow and deny lists to credentials.
// Names are matched case-insensitively against provider ids; a validator
// name in either list also stands for that validator's provider id.
type providerFilter struct {
	only    map[string]struct{}
	exclude map[string]struct{}
}

func newProviderFilter(all *plugin.ValidatorRegistry, only, exclude []string) providerFilter {
	expand := func(items []string) map[string]struct{} {
		set := make(map[string]struct{}, len(items))
		for _, item := range items {
			item = strings.ToLower(strings.TrimSpace(item))
			if item == "" {
				continue
			}
			set[item] = struct{}{}
			if v, ok := all.Get(item); ok {
				set[strings.ToLower(v.ProviderID())] = struct{}{}
			}
		}
		return set
	}
	return providerFilter{only: expand(only), exclude: expand(exclude)}
}

func (f providerFilter) allows(provider string) bool {
	p := strings.ToLower(provider)
	if len(f.only) > 0 {
		if _, ok := f.only[p]; !ok || p == "" {
			return false
		}
	}
	_, denied := f.exclude[p]
	return !denied || p == ""
}

func copyMeta(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
