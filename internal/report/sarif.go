package report

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/sarif"

	"github.com/systmms/aicred/internal/logging"
	"github.com/systmms/aicred/pkg/credential"
)

const (
	toolName = "aicred"
	toolURI  = "https://github.com/systmms/aicred"
)

// ruleID names the SARIF rule for a provider.
func ruleID(provider string) string {
	return "aicred/" + providerLabel(provider)
}

// sarifLevel maps confidence onto SARIF result levels.
func sarifLevel(c credential.Confidence) string {
	switch {
	case c.AtLeast(credential.ConfidenceHigh):
		return "error"
	case c == credential.ConfidenceMedium:
		return "warning"
	default:
		return "note"
	}
}

// writeSARIF emits one result per key. Messages carry the hash prefix and
// never the value.
func writeSARIF(w io.Writer, result *credential.ScanResult, opts Options) error {
	rep, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("create sarif report: %w", err)
	}

	uri := toolURI
	if opts.ToolVersion != "" {
		uri += "/releases/tag/" + opts.ToolVersion
	}
	run := sarif.NewRun(toolName, uri)

	rules := make(map[string]bool)
	for _, k := range result.Keys {
		id := ruleID(k.Provider)
		if !rules[id] {
			rules[id] = true
			run.AddRule(id).
				WithDescription(fmt.Sprintf("Credential for %s found in a local configuration file", providerLabel(k.Provider)))
		}

		region := sarif.NewRegion()
		if k.Source.Line > 0 {
			region = region.WithStartLine(k.Source.Line)
		}
		if k.Source.Column > 0 {
			region = region.WithStartColumn(k.Source.Column)
		}
		loc := sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewSimpleArtifactLocation(k.Source.Path)).
			WithRegion(region)

		msg := fmt.Sprintf("%s %s with %s confidence (sha256 %s)",
			providerLabel(k.Provider), k.ValueType, k.Confidence, logging.ShortHash(k.Hash()))
		run.AddResult(id).
			WithLevel(sarifLevel(k.Confidence)).
			WithMessage(sarif.NewTextMessage(msg)).
			WithLocation(sarif.NewLocationWithPhysicalLocation(loc))
	}

	rep.AddRun(run)
	return rep.PrettyWrite(w)
}
