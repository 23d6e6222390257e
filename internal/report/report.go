// Package report renders a scan result for the terminal or for other tools.
// No format writes a raw credential value unless the caller asked for values
// in verbose table or summary output and the scan retained them.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	aicerrors "github.com/systmms/aicred/internal/errors"
	"github.com/systmms/aicred/internal/logging"
	"github.com/systmms/aicred/pkg/credential"
)

// Format is an output format name.
type Format string

const (
	FormatJSON    Format = "json"
	FormatNDJSON  Format = "ndjson"
	FormatTable   Format = "table"
	FormatSummary Format = "summary"
	FormatSARIF   Format = "sarif"
)

// Formats lists the supported formats in help order.
func Formats() []Format {
	return []Format{FormatTable, FormatJSON, FormatNDJSON, FormatSummary, FormatSARIF}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	names := make([]string, 0, len(Formats()))
	for _, known := range Formats() {
		names = append(names, string(known))
	}
	return "", aicerrors.ConfigError{
		Field:      "format",
		Value:      s,
		Message:    "unknown output format",
		Suggestion: "Use one of: " + strings.Join(names, ", "),
	}
}

// Options tunes rendering.
type Options struct {
	// Verbose adds per-instance metadata to table and summary output.
	Verbose bool

	// IncludeValues prints retained raw values in verbose table and summary
	// output. JSON based formats are never affected.
	IncludeValues bool

	// ToolVersion is written into SARIF output.
	ToolVersion string
}

// Write renders result to w.
func Write(w io.Writer, result *credential.ScanResult, format Format, opts Options) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatNDJSON:
		return writeNDJSON(w, result)
	case FormatTable:
		return writeTable(w, result, opts)
	case FormatSummary:
		return writeSummary(w, result, opts)
	case FormatSARIF:
		return writeSARIF(w, result, opts)
	default:
		_, err := ParseFormat(string(format))
		return err
	}
}

func writeJSON(w io.Writer, result *credential.ScanResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scan result: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// writeNDJSON writes one line per key, then one per config instance.
func writeNDJSON(w io.Writer, result *credential.ScanResult) error {
	enc := json.NewEncoder(w)
	for _, k := range result.Keys {
		if err := enc.Encode(k); err != nil {
			return fmt.Errorf("encode key: %w", err)
		}
	}
	for _, inst := range result.ConfigInstances {
		if err := enc.Encode(inst); err != nil {
			return fmt.Errorf("encode config instance: %w", err)
		}
	}
	return nil
}

func writeTable(w io.Writer, result *credential.ScanResult, opts Options) error {
	if len(result.Keys) > 0 {
		fmt.Fprintln(w, "=== Discovered Credentials ===")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(tw, "PROVIDER\tCONFIDENCE\tTYPE\tVALUE\tSOURCE\n")
		for _, k := range result.Keys {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				providerLabel(k.Provider), k.Confidence, k.ValueType,
				displayValue(k, opts), truncatePath(k.Source.String(), 60))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(result.ConfigInstances) > 0 {
		fmt.Fprintln(w, "\n=== Application Instances ===")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(tw, "APPLICATION\tKEYS\tPROVIDERS\tPATH\n")
		for _, inst := range result.ConfigInstances {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
				inst.AppName, len(inst.Keys), instanceProviders(inst), truncatePath(inst.ConfigPath, 60))
			if opts.Verbose {
				for _, k := range sortedKeys(inst.Metadata) {
					_, _ = fmt.Fprintf(tw, "\t\t  %s=%s\t\n", k, inst.Metadata[k])
				}
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\nTotal: %d credentials, %d application instances\n",
		len(result.Keys), len(result.ConfigInstances))
	return err
}

func writeSummary(w io.Writer, result *credential.ScanResult, opts Options) error {
	var b strings.Builder
	b.WriteString("Scan Summary\n")
	fmt.Fprintf(&b, "  Home Directory: %s\n", result.HomeDirectory)
	fmt.Fprintf(&b, "  Scan Time: %s (%s)\n", result.ScanCompletedAt.Format(time.RFC3339), result.Duration())
	fmt.Fprintf(&b, "  Providers Scanned: %s\n", strings.Join(result.ProvidersScanned, ", "))
	fmt.Fprintf(&b, "  Files Scanned: %d\n", result.FilesScanned)
	fmt.Fprintf(&b, "  Directories Scanned: %d\n", result.DirectoriesScanned)

	b.WriteString("\nResults:\n")
	fmt.Fprintf(&b, "  Keys Found: %d\n", len(result.Keys))
	fmt.Fprintf(&b, "  Config Instances: %d\n", len(result.ConfigInstances))

	byProvider := result.KeysByProvider()
	if len(byProvider) > 0 {
		b.WriteString("\nBy Provider:\n")
		for _, p := range sortedKeys(byProvider) {
			fmt.Fprintf(&b, "  %s: %d\n", providerLabel(p), len(byProvider[p]))
			if opts.Verbose {
				for _, k := range byProvider[p] {
					fmt.Fprintf(&b, "    - %s %s (%s)\n", displayValue(k, opts), k.Confidence, k.Source)
				}
			}
		}
	}

	byConfidence := result.KeysByConfidence()
	if len(byConfidence) > 0 {
		b.WriteString("\nBy Confidence:\n")
		for _, c := range []credential.Confidence{
			credential.ConfidenceVeryHigh, credential.ConfidenceHigh,
			credential.ConfidenceMedium, credential.ConfidenceLow,
		} {
			if n := len(byConfidence[c]); n > 0 {
				fmt.Fprintf(&b, "  %s: %d\n", c, n)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func displayValue(k credential.DiscoveredCredential, opts Options) string {
	if opts.Verbose && opts.IncludeValues {
		if raw, ok := k.RawValue(); ok {
			return raw
		}
	}
	if v := k.RedactedValue(); v != "" {
		return v
	}
	return logging.ShortHash(k.Hash())
}

func instanceProviders(inst credential.ConfigInstance) string {
	seen := make(map[string]struct{})
	for _, k := range inst.Keys {
		seen[providerLabel(k.Provider)] = struct{}{}
	}
	if len(seen) == 0 {
		return "-"
	}
	return strings.Join(sortedKeys(seen), ",")
}

func providerLabel(p string) string {
	if p == "" {
		return "unknown"
	}
	return p
}

func truncatePath(path string, max int) string {
	r := []rune(path)
	if len(r) <= max {
		return path
	}
	return "..." + string(r[len(r)-(max-3):])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
