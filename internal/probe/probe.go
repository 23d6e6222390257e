// Package probe enriches a finished scan by asking providers which models a
// discovered credential can list. Probing is best effort: every failure is
// recorded on the config instance and never fails the scan.
package probe

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	aicerrors "github.com/systmms/aicred/internal/errors"
	"github.com/systmms/aicred/internal/logging"
	"github.com/systmms/aicred/internal/metrics"
	"github.com/systmms/aicred/internal/validators"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

// Probe outcomes recorded in instance metadata.
const (
	StatusOK           = "ok"
	StatusUnauthorized = "unauthorized"
	StatusUnreachable  = "unreachable"
	StatusTimeout      = "timeout"
	StatusCancelled    = "cancelled"
	StatusSkipped      = "skipped"
	StatusError        = "error"
)

// UnknownModels is recorded when a probe could not list models.
const UnknownModels = "unknown"

// Options tunes a Prober. Zero values pick the defaults.
type Options struct {
	// Timeout bounds each probe, retries included. Default 30s.
	Timeout time.Duration

	// RequestsPerSecond limits outgoing requests across all probes. Default 5.
	RequestsPerSecond float64

	// BaseURLs overrides provider endpoints, keyed by provider id.
	BaseURLs map[string]string

	// MaxRetries for retryable failures. Default 2.
	MaxRetries uint64

	// RetryInterval is the first backoff interval. Default 500ms.
	RetryInterval time.Duration

	// Concurrency bounds probes in flight. Default 4.
	Concurrency int

	// CacheTTL keeps successful outcomes for repeated runs. Default 10m.
	CacheTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 5
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 2
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 500 * time.Millisecond
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 10 * time.Minute
	}
	return o
}

// Outcome is the result of one probe.
type Outcome struct {
	Status string
	Models []string
	Err    string
}

// Prober runs model-listing probes. It is safe for concurrent use.
type Prober struct {
	validators     *plugin.ValidatorRegistry
	opts           Options
	client         *http.Client
	limiter        *rate.Limiter
	cache          *ttlcache.Cache[string, Outcome]
	logger         *logging.Logger
	metrics        *metrics.ScanMetrics
	callerIdentity CallerIdentityFunc

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) { p.client = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Prober) { p.logger = l }
}

// WithMetrics records probe outcomes.
func WithMetrics(m *metrics.ScanMetrics) Option {
	return func(p *Prober) { p.metrics = m }
}

// WithCallerIdentity replaces the AWS STS call.
func WithCallerIdentity(fn CallerIdentityFunc) Option {
	return func(p *Prober) { p.callerIdentity = fn }
}

// New creates a Prober for the providers in v.
func New(v *plugin.ValidatorRegistry, opts Options, options ...Option) *Prober {
	opts = opts.withDefaults()
	p := &Prober{
		validators: v,
		opts:       opts,
		client:     &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		cache: ttlcache.New[string, Outcome](
			ttlcache.WithTTL[string, Outcome](opts.CacheTTL),
			ttlcache.WithDisableTouchOnHit[string, Outcome](),
		),
		cancels: make(map[string]context.CancelFunc),
	}
	for _, o := range options {
		o(p)
	}
	if p.callerIdentity == nil {
		p.callerIdentity = p.stsCallerIdentity
	}
	return p
}

// job is one probe against one provider for one config instance.
type job struct {
	instanceID string
	provider   string
	style      validators.ProbeStyle
	baseURL    string
	hash       string

	// secret material; never logged
	key       string
	secretKey string
	token     string
	region    string
}

// Run probes every config instance of result and returns a copy annotated
// with "<provider>_probe_status" and "<provider>_models" metadata. result is
// not modified. Credentials captured without their raw value are skipped,
// except for keyless providers.
func (p *Prober) Run(ctx context.Context, result *credential.ScanResult) (*credential.ScanResult, error) {
	jobs := p.plan(result)
	outcomes := make([]Outcome, len(jobs))

	ictx := make(map[string]context.Context)
	for _, j := range jobs {
		if _, ok := ictx[j.instanceID]; ok {
			continue
		}
		c, cancel := context.WithCancel(ctx)
		ictx[j.instanceID] = c
		p.mu.Lock()
		p.cancels[j.instanceID] = cancel
		p.mu.Unlock()
	}
	defer func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for id := range ictx {
			if cancel, ok := p.cancels[id]; ok {
				cancel()
				delete(p.cancels, id)
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			outcomes[i] = p.probe(ictx[j.instanceID], j)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	instanceMeta := make(map[string]map[string]string)
	for i, j := range jobs {
		meta := instanceMeta[j.instanceID]
		if meta == nil {
			meta = make(map[string]string)
			instanceMeta[j.instanceID] = meta
		}
		o := outcomes[i]
		meta[j.provider+"_probe_status"] = o.Status
		if o.Status == StatusOK {
			meta[j.provider+"_models"] = strings.Join(o.Models, ",")
		} else if o.Status != StatusSkipped {
			meta[j.provider+"_models"] = UnknownModels
		}
	}
	resultMeta := map[string]string{"probes_run": strconv.Itoa(len(jobs))}
	return result.WithMetadata(resultMeta, instanceMeta), nil
}

// Cancel stops the in-flight probes of one config instance. It reports
// whether the instance was being probed.
func (p *Prober) Cancel(instanceID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cancel, ok := p.cancels[instanceID]
	if ok {
		cancel()
	}
	return ok
}

// plan derives the probe jobs in instance order.
func (p *Prober) plan(result *credential.ScanResult) []job {
	var jobs []job
	for _, inst := range result.ConfigInstances {
		seen := make(map[string]bool)
		for _, k := range inst.Keys {
			if !probeable(k) {
				p.logger.Debug("not probing %s credential %s from %s", k.Provider, logging.ShortHash(k.Hash()), inst.InstanceID)
				continue
			}
			v, ok := plugin.ByProvider(p.validators, k.Provider)
			if !ok {
				continue
			}
			info, ok := validators.InfoFor(v)
			if !ok || info.Probe == validators.ProbeNone || seen[k.Provider] {
				continue
			}

			j := job{
				instanceID: inst.InstanceID,
				provider:   k.Provider,
				style:      info.Probe,
				baseURL:    p.baseURL(k.Provider, info, inst.Metadata),
				hash:       k.Hash(),
			}
			switch info.Probe {
			case validators.ProbeSTS:
				j.key, j.secretKey, j.token = awsKeys(inst.Keys)
				j.region = inst.Metadata["aws_region"]
			case validators.ProbeOllama:
				// ollama "keys" are server addresses
				if raw, ok := k.RawValue(); ok && strings.HasPrefix(raw, "http") && p.opts.BaseURLs[k.Provider] == "" {
					j.baseURL = normalizeBase(raw)
				}
			default:
				j.key, _ = k.RawValue()
			}
			seen[k.Provider] = true
			jobs = append(jobs, j)
		}

		if _, ok := inst.Metadata["ollama_base_url"]; ok && !seen["ollama"] {
			if v, ok := plugin.ByProvider(p.validators, "ollama"); ok {
				info, _ := validators.InfoFor(v)
				jobs = append(jobs, job{
					instanceID: inst.InstanceID,
					provider:   "ollama",
					style:      validators.ProbeOllama,
					baseURL:    p.baseURL("ollama", info, inst.Metadata),
				})
			}
		}
	}
	return jobs
}

// identifierFields hold account identifiers that scanners report next to
// keys but that never authenticate anything.
var identifierFields = map[string]bool{"userid": true}

// probeable reports whether k may be sent to its provider. Values whose
// provider was only inferred from their shape must score High before a
// provider ever sees them.
func probeable(k credential.DiscoveredCredential) bool {
	if k.Provider == "" || identifierFields[strings.ToLower(k.Metadata["field"])] {
		return false
	}
	return !k.Inferred || k.Confidence.AtLeast(credential.ConfidenceHigh)
}

func (p *Prober) baseURL(provider string, info validators.Info, meta map[string]string) string {
	if u := p.opts.BaseURLs[provider]; u != "" {
		return normalizeBase(u)
	}
	if u := meta[provider+"_base_url"]; u != "" {
		return normalizeBase(u)
	}
	return normalizeBase(info.BaseURL)
}

// normalizeBase strips a trailing slash and API version so paths can be
// appended uniformly.
func normalizeBase(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	return strings.TrimSuffix(u, "/v1")
}

// awsKeys picks an access key id and its secret from one instance.
func awsKeys(keys []credential.DiscoveredCredential) (accessKey, secretKey, token string) {
	for _, k := range keys {
		if k.Provider != "aws_bedrock" {
			continue
		}
		raw, ok := k.RawValue()
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(raw, "AKIA") || strings.HasPrefix(raw, "ASIA"):
			accessKey = raw
		case k.ValueType == credential.ValueTypeSecretKey:
			secretKey = raw
		case k.Metadata["field"] == "AWS_SESSION_TOKEN":
			token = raw
		}
	}
	return accessKey, secretKey, token
}

func (j job) ready() bool {
	switch j.style {
	case validators.ProbeOllama:
		return j.baseURL != ""
	case validators.ProbeSTS:
		return j.key != "" && j.secretKey != ""
	default:
		return j.key != "" && j.baseURL != ""
	}
}

// secrets lists the raw values a provider error could echo back.
func (j job) secrets() []string {
	return []string{j.key, j.secretKey, j.token}
}

func (j job) cacheKey() string {
	return j.provider + "|" + j.hash + "|" + j.baseURL
}

func (p *Prober) probe(ctx context.Context, j job) Outcome {
	if !j.ready() {
		return Outcome{Status: StatusSkipped}
	}
	if item := p.cache.Get(j.cacheKey()); item != nil {
		return item.Value()
	}

	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	var models []string
	operation := func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		m, err := p.call(ctx, j)
		if err != nil {
			if ctx.Err() == nil && aicerrors.IsRetryable(err) {
				p.logger.Debug("%s probe for %s failed, will retry: %s", j.provider, logging.ShortHash(j.hash),
					logging.Redact(err.Error(), j.secrets()))
				return err
			}
			return backoff.Permanent(err)
		}
		models = m
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = p.opts.RetryInterval
	expBackoff.MaxElapsedTime = p.opts.Timeout
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(expBackoff, p.opts.MaxRetries), ctx))

	outcome := outcomeFor(ctx, models, err)
	if err != nil {
		p.logger.Debug("%v (cause: %s)", aicerrors.ProbeError(j.provider, err), logging.Redact(err.Error(), j.secrets()))
	}
	p.metrics.RecordProbe(j.provider, outcome.Status, time.Since(started).Seconds())
	if outcome.Status == StatusOK || outcome.Status == StatusUnauthorized {
		p.cache.Set(j.cacheKey(), outcome, ttlcache.DefaultTTL)
	}
	return outcome
}

func (p *Prober) call(ctx context.Context, j job) ([]string, error) {
	switch j.style {
	case validators.ProbeSTS:
		arn, err := p.callerIdentity(ctx, AWSKeys{AccessKeyID: j.key, SecretAccessKey: j.secretKey, SessionToken: j.token}, j.region)
		if err != nil {
			return nil, err
		}
		return []string{arn}, nil
	default:
		return p.listModels(ctx, j)
	}
}

func outcomeFor(ctx context.Context, models []string, err error) Outcome {
	if err == nil {
		sorted := append([]string(nil), models...)
		sort.Strings(sorted)
		return Outcome{Status: StatusOK, Models: sorted}
	}

	var status *statusError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return Outcome{Status: StatusTimeout, Err: err.Error()}
	case errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled):
		return Outcome{Status: StatusCancelled, Err: err.Error()}
	case errors.As(err, &status) && (status.code == http.StatusUnauthorized || status.code == http.StatusForbidden):
		return Outcome{Status: StatusUnauthorized, Err: err.Error()}
	case isUnauthorizedAWS(err):
		return Outcome{Status: StatusUnauthorized, Err: err.Error()}
	case strings.Contains(err.Error(), "connection refused") || strings.Contains(err.Error(), "no such host"):
		return Outcome{Status: StatusUnreachable, Err: err.Error()}
	default:
		return Outcome{Status: StatusError, Err: err.Error()}
	}
}
