package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/aicred/internal/audit"
	"github.com/systmms/aicred/internal/config"
	"github.com/systmms/aicred/internal/discovery"
	"github.com/systmms/aicred/internal/logging"
	"github.com/systmms/aicred/internal/metrics"
	"github.com/systmms/aicred/internal/probe"
	"github.com/systmms/aicred/internal/report"
	"github.com/systmms/aicred/internal/scanners"
	"github.com/systmms/aicred/internal/validators"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
)

// Process exit codes.
const (
	ExitFound    = 0
	ExitNotFound = 1
	ExitError    = 2
)

// ErrNoFindings is returned by scan when nothing was found. main maps it to
// ExitNotFound without printing anything.
var ErrNoFindings = errors.New("no credentials or config instances found")

// BuildInfo is stamped at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type scanFlags struct {
	home           string
	format         string
	includeValues  bool
	only           []string
	exclude        []string
	maxBytes       int64
	dryRun         bool
	auditLog       string
	probe          bool
	probeTimeout   time.Duration
	metricsFile    string
	gitleaksConfig string
	verbose        bool
}

func NewScanCommand(cfg *config.Config, build BuildInfo) *cobra.Command {
	var f scanFlags

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a home directory for AI credentials",
		Long: `Scan the configuration files of known AI tools, .env files and shell
profiles for provider credentials.

Exit status is 0 when something was found, 1 when nothing was found and 2 on
error. Raw values are never written to json, ndjson or sarif output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			applyDefinition(cmd, &f, cfg.Definition)
			return runScan(cmd, cfg, build, f)
		},
	}

	cmd.Flags().StringVar(&f.home, "home", "", "Directory to scan (default: your home directory)")
	cmd.Flags().StringVarP(&f.format, "format", "f", string(report.FormatTable), "Output format: table, json, ndjson, summary, sarif")
	cmd.Flags().BoolVar(&f.includeValues, "include-values", false, "Show raw values in verbose table and summary output")
	cmd.Flags().StringSliceVar(&f.only, "only", nil, "Only report these providers")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "Never report these providers")
	cmd.Flags().Int64Var(&f.maxBytes, "max-bytes-per-file", discovery.DefaultMaxFileSize, "Skip files larger than this")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "List the paths each scanner would read, without reading them")
	cmd.Flags().StringVar(&f.auditLog, "audit-log", "", "Append scan events to this NDJSON file")
	cmd.Flags().BoolVar(&f.probe, "probe", false, "Ask providers which models each credential can list")
	cmd.Flags().DurationVar(&f.probeTimeout, "probe-timeout", 30*time.Second, "Timeout for each probe")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	cmd.Flags().StringVar(&f.gitleaksConfig, "gitleaks-config", "", "Custom gitleaks TOML rules for shell profiles")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Show instance settings")

	return cmd
}

// applyDefinition fills every flag the user did not set from the config file.
func applyDefinition(cmd *cobra.Command, f *scanFlags, def *config.Definition) {
	if def == nil {
		return
	}
	set := func(name string) bool { return cmd.Flags().Changed(name) }

	if !set("home") && def.Scan.Home != "" {
		f.home = def.Scan.Home
	}
	if !set("max-bytes-per-file") && def.Scan.MaxFileSize > 0 {
		f.maxBytes = def.Scan.MaxFileSize
	}
	if !set("only") && len(def.Scan.OnlyProviders) > 0 {
		f.only = def.Scan.OnlyProviders
	}
	if !set("exclude") && len(def.Scan.ExcludeProviders) > 0 {
		f.exclude = def.Scan.ExcludeProviders
	}
	if !set("gitleaks-config") && def.Scan.GitleaksConfig != "" {
		f.gitleaksConfig = def.Scan.GitleaksConfig
	}
	if !set("probe") && def.Probe.Enabled {
		f.probe = true
	}
	if !set("probe-timeout") {
		if d, err := def.Probe.TimeoutDuration(); err == nil && d > 0 {
			f.probeTimeout = d
		}
	}
	if !set("audit-log") && def.AuditLog != "" {
		f.auditLog = def.AuditLog
	}
	if !set("metrics-file") && def.MetricsFile != "" {
		f.metricsFile = def.MetricsFile
	}
}

func runScan(cmd *cobra.Command, cfg *config.Config, build BuildInfo, f scanFlags) error {
	logger := cfg.Logger
	out := cmd.OutOrStdout()

	format, err := report.ParseFormat(f.format)
	if err != nil {
		return err
	}

	scannerOpts := []scanners.Option{scanners.WithLogger(logger)}
	if f.gitleaksConfig != "" {
		detector, err := scanners.LoadGitleaksConfig(f.gitleaksConfig)
		if err != nil {
			return err
		}
		scannerOpts = append(scannerOpts, scanners.WithDetector(detector))
	}

	var m *metrics.ScanMetrics
	if f.metricsFile != "" {
		m = metrics.NewScanMetrics()
	}

	vals := validators.NewRegistry()
	orch := discovery.New(vals, scanners.NewRegistry(scannerOpts...),
		discovery.WithLogger(logger), discovery.WithMetrics(m))

	if f.dryRun {
		return printPlan(out, orch, f.home)
	}

	result, err := orch.Scan(cmd.Context(), discovery.Options{
		Root:              f.home,
		MaxFileSize:       f.maxBytes,
		OnlyProviders:     f.only,
		ExcludeProviders:  f.exclude,
		IncludeFullValues: f.includeValues || f.probe,
		Concurrency:       concurrency(cfg.Definition),
	})
	if err != nil {
		return err
	}
	defer result.Release()

	for _, sf := range result.SoftFailures {
		logger.Debug("%s: %s %s: %s", sf.Scanner, sf.Kind, sf.Path, sf.Message)
	}

	if f.auditLog != "" {
		if err := writeAudit(f.auditLog, result, logger); err != nil {
			return err
		}
	}

	if f.probe {
		result, err = runProbes(cmd, cfg.Definition, vals, result, f.probeTimeout, logger, m)
		if err != nil {
			return err
		}
	}

	if err := report.Write(out, result, format, report.Options{
		Verbose:       f.verbose,
		IncludeValues: f.includeValues,
		ToolVersion:   build.Version,
	}); err != nil {
		return err
	}

	if f.metricsFile != "" {
		if err := metrics.WriteTextfile(f.metricsFile); err != nil {
			logger.Warn("Failed to write metrics to %s: %v", f.metricsFile, err)
		}
	}

	if !result.HasFindings() {
		return ErrNoFindings
	}
	return nil
}

func runProbes(cmd *cobra.Command, def *config.Definition, vals *plugin.ValidatorRegistry, result *credential.ScanResult,
	timeout time.Duration, logger *logging.Logger, m *metrics.ScanMetrics) (*credential.ScanResult, error) {
	opts := probe.Options{Timeout: timeout}
	if def != nil {
		opts.RequestsPerSecond = def.Probe.RequestsPerSecond
		opts.Concurrency = def.Probe.Concurrency
		opts.BaseURLs = def.Probe.BaseURLs
	}
	prober := probe.New(vals, opts, probe.WithLogger(logger), probe.WithMetrics(m))
	probed, err := prober.Run(cmd.Context(), result)
	if err != nil {
		return nil, err
	}
	logger.Debug("ran %s probes", probed.Metadata["probes_run"])
	return probed, nil
}

func writeAudit(path string, result *credential.ScanResult, logger *logging.Logger) error {
	al, err := audit.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = al.Close() }()

	scanID, err := al.RecordScan(result)
	if err != nil {
		return err
	}
	logger.Debug("audit scan id %s", scanID)
	return nil
}

func printPlan(w io.Writer, orch *discovery.Orchestrator, home string) error {
	root, planned, err := orch.Plan(home)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Scan root: %s\n", root)
	for _, p := range planned {
		fmt.Fprintf(w, "\n%s (%s):\n", p.Scanner, p.AppName)
		if len(p.Paths) == 0 {
			fmt.Fprintln(w, "  (nothing to read)")
			continue
		}
		for _, path := range p.Paths {
			fmt.Fprintf(w, "  %s\n", path)
		}
	}
	return nil
}

func concurrency(def *config.Definition) int {
	if def == nil {
		return 0
	}
	return def.Scan.Concurrency
}
