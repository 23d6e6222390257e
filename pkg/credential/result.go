package credential

import (
	"sort"
	"time"
)

// ConfigInstance groups the credentials found in one recognized application
// configuration file.
type ConfigInstance struct {
	InstanceID   string                 `json:"instance_id"`
	AppName      string                 `json:"app_name"`
	ConfigPath   string                 `json:"config_path"`
	DiscoveredAt time.Time              `json:"discovered_at"`
	Keys         []DiscoveredCredential `json:"keys"`
	Metadata     map[string]string      `json:"metadata,omitempty"`
}

// SoftFailure is a per-file or per-scanner error that did not abort the scan.
type SoftFailure struct {
	Scanner string
	Path    string
	Kind    string
	Message string
}

// ScanResult is the aggregate output of one discovery run.
type ScanResult struct {
	Keys               []DiscoveredCredential `json:"keys"`
	ConfigInstances    []ConfigInstance       `json:"config_instances"`
	ScanStartedAt      time.Time              `json:"scan_started_at"`
	ScanCompletedAt    time.Time              `json:"scan_completed_at"`
	HomeDirectory      string                 `json:"home_directory"`
	ProvidersScanned   []string               `json:"providers_scanned"`
	FilesScanned       int                    `json:"files_scanned"`
	DirectoriesScanned int                    `json:"directories_scanned"`
	Metadata           map[string]string      `json:"metadata,omitempty"`

	// SoftFailures are kept in memory for the audit log and never serialized.
	SoftFailures []SoftFailure `json:"-"`
}

// HasFindings reports whether any credential or config instance was found.
func (r *ScanResult) HasFindings() bool {
	return len(r.Keys) > 0 || len(r.ConfigInstances) > 0
}

// Duration is the wall time of the scan.
func (r *ScanResult) Duration() time.Duration {
	return r.ScanCompletedAt.Sub(r.ScanStartedAt)
}

// KeysByProvider groups keys by provider id; unclaimed keys group under "".
func (r *ScanResult) KeysByProvider() map[string][]DiscoveredCredential {
	out := make(map[string][]DiscoveredCredential)
	for _, k := range r.Keys {
		out[k.Provider] = append(out[k.Provider], k)
	}
	return out
}

// KeysByConfidence groups keys by confidence level.
func (r *ScanResult) KeysByConfidence() map[Confidence][]DiscoveredCredential {
	out := make(map[Confidence][]DiscoveredCredential)
	for _, k := range r.Keys {
		out[k.Confidence] = append(out[k.Confidence], k)
	}
	return out
}

// FilterByConfidence returns keys at or above min, in report order.
func (r *ScanResult) FilterByConfidence(min Confidence) []DiscoveredCredential {
	var out []DiscoveredCredential
	for _, k := range r.Keys {
		if k.Confidence.AtLeast(min) {
			out = append(out, k)
		}
	}
	return out
}

// HighConfidenceKeys returns keys scored High or VeryHigh.
func (r *ScanResult) HighConfidenceKeys() []DiscoveredCredential {
	return r.FilterByConfidence(ConfidenceHigh)
}

// Providers returns the sorted distinct providers that have at least one key.
func (r *ScanResult) Providers() []string {
	seen := make(map[string]struct{})
	for _, k := range r.Keys {
		if k.Provider != "" {
			seen[k.Provider] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// WithMetadata returns a copy of r with extra result metadata and per-instance
// metadata merged in. instanceMeta is keyed by instance id. r is not modified.
func (r *ScanResult) WithMetadata(resultMeta map[string]string, instanceMeta map[string]map[string]string) *ScanResult {
	out := *r
	out.Metadata = mergeMeta(r.Metadata, resultMeta)
	out.ConfigInstances = make([]ConfigInstance, len(r.ConfigInstances))
	for i, inst := range r.ConfigInstances {
		inst.Metadata = mergeMeta(inst.Metadata, instanceMeta[inst.InstanceID])
		out.ConfigInstances[i] = inst
	}
	return &out
}

// Release destroys every retained raw value in the result.
func (r *ScanResult) Release() {
	for _, k := range r.Keys {
		k.Release()
	}
	for _, inst := range r.ConfigInstances {
		for _, k := range inst.Keys {
			k.Release()
		}
	}
}

func mergeMeta(base, extra map[string]string) map[string]string {
	if len(base) == 0 && len(extra) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
