package discovery_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/aicred/internal/discovery"
	aicerrors "github.com/systmms/aicred/internal/errors"
	"github.com/systmms/aicred/internal/scanners"
	"github.com/systmms/aicred/internal/validators"
	"github.com/systmms/aicred/pkg/credential"
	"github.com/systmms/aicred/pkg/plugin"
	"github.com/systmms/aicred/tests/testutil"
)

const testKey = "sk-test1234567890"

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newOrchestrator(opts ...discovery.Option) *discovery.Orchestrator {
	opts = append([]discovery.Option{discovery.WithClock(func() time.Time { return fixedNow })}, opts...)
	return discovery.New(validators.NewRegistry(), scanners.NewRegistry(scanners.WithoutGitleaks()), opts...)
}

func scan(t *testing.T, root string, mutate ...func(*discovery.Options)) *credential.ScanResult {
	t.Helper()

	opts := discovery.Options{Root: root}
	for _, m := range mutate {
		m(&opts)
	}
	result, err := newOrchestrator().Scan(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// TestScanDotenvKey validates the end-to-end path for a single .env key
func TestScanDotenvKey(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).File(".env", "OPENAI_API_KEY="+testKey+"\n")
	result := scan(t, home.Root())

	require.Len(t, result.Keys, 1)
	key := result.Keys[0]
	assert.Equal(t, "openai", key.Provider)
	assert.True(t, key.Confidence.AtLeast(credential.ConfidenceHigh))
	assert.Equal(t, credential.Hash(testKey), key.Hash())
	assert.Equal(t, "****7890", key.RedactedValue())
	assert.Equal(t, home.Path(".env"), key.Source.Path)
	assert.Equal(t, 1, key.Source.Line)
	assert.Equal(t, credential.EnvironmentFile, key.Environment.Kind)
	assert.Equal(t, "OPENAI_API_KEY", key.Metadata["field"])
	assert.False(t, key.HasRawValue())

	_, ok := key.RawValue()
	assert.False(t, ok)

	require.Len(t, result.ConfigInstances, 1)
	inst := result.ConfigInstances[0]
	assert.Equal(t, "dotenv", inst.AppName)
	assert.Equal(t, scanners.InstanceID("dotenv", home.Path(".env")), inst.InstanceID)
	require.Len(t, inst.Keys, 1)
	assert.Equal(t, key.Hash(), inst.Keys[0].Hash())

	assert.Equal(t, 1, result.FilesScanned)
	assert.Equal(t, home.Root(), result.HomeDirectory)
	assert.Equal(t, fixedNow, result.ScanStartedAt)
	assert.Equal(t, fixedNow, result.ScanCompletedAt)
	assert.Len(t, result.ProvidersScanned, 20)
	assert.Empty(t, result.SoftFailures)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(data), testKey)
	assert.Contains(t, string(data), credential.Hash(testKey))

	formatted := fmt.Sprintf("%v %+v %#v %s", key, key, key, key)
	assert.NotContains(t, formatted, testKey)
}

// TestScanIncludeFullValues validates that retained values only change the
// in-memory accessor, never the report
func TestScanIncludeFullValues(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).File(".env", "OPENAI_API_KEY="+testKey+"\n")
	redacted := scan(t, home.Root())
	full := scan(t, home.Root(), func(o *discovery.Options) { o.IncludeFullValues = true })
	t.Cleanup(full.Release)

	require.Len(t, full.Keys, 1)
	raw, ok := full.Keys[0].RawValue()
	require.True(t, ok)
	assert.Equal(t, testKey, raw)

	redactedJSON, err := json.Marshal(redacted)
	require.NoError(t, err)
	fullJSON, err := json.Marshal(full)
	require.NoError(t, err)
	assert.JSONEq(t, string(redactedJSON), string(fullJSON))
	assert.NotContains(t, string(fullJSON), testKey)
}

func TestScanEmptyHome(t *testing.T) {
	t.Parallel()

	result := scan(t, testutil.NewHome(t).Root())

	assert.Empty(t, result.Keys)
	assert.Empty(t, result.ConfigInstances)
	assert.False(t, result.HasFindings())
	assert.Zero(t, result.FilesScanned)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"keys":[]`)
	assert.Contains(t, string(data), `"config_instances":[]`)
}

func TestScanOversizedFileIsCounted(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).File(".env", "OPENAI_API_KEY="+testKey+"\n")
	result := scan(t, home.Root(), func(o *discovery.Options) { o.MaxFileSize = 10 })

	assert.Empty(t, result.Keys)
	assert.Equal(t, 1, result.FilesScanned)
	assert.Empty(t, result.SoftFailures)
}

func TestScanSkipsBinaryFiles(t *testing.T) {
	t.Parallel()

	elf := append([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1}, make([]byte, 120)...)
	home := testutil.NewHome(t).Bytes(".env", elf)
	result := scan(t, home.Root())

	assert.Empty(t, result.Keys)
	assert.Equal(t, 1, result.FilesScanned)
}

// TestScanSoftFailureIsolation validates that a malformed file does not stop
// the other scanners
func TestScanSoftFailureIsolation(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).
		File(".claude.json", `{"primaryApiKey": "sk-ant-`).
		File(".env", "OPENAI_API_KEY="+testKey+"\n")
	result := scan(t, home.Root())

	require.Len(t, result.Keys, 1)
	assert.Equal(t, "openai", result.Keys[0].Provider)

	require.Len(t, result.SoftFailures, 1)
	failure := result.SoftFailures[0]
	assert.Equal(t, "claude-desktop", failure.Scanner)
	assert.Equal(t, home.Path(".claude.json"), failure.Path)
	assert.Equal(t, "ParseError", failure.Kind)
	assert.Equal(t, 2, result.FilesScanned)
}

func TestScanUnreadableFile(t *testing.T) {
	testutil.SkipIfRoot(t)
	t.Parallel()

	home := testutil.NewHome(t).
		Unreadable(".zshrc", "export OPENAI_API_KEY="+testKey+"\n").
		File(".env", "GROQ_API_KEY=gsk_abcdefghijklmnop\n")
	result := scan(t, home.Root())

	require.Len(t, result.Keys, 1)
	assert.Equal(t, "groq", result.Keys[0].Provider)
	require.Len(t, result.SoftFailures, 1)
	assert.Equal(t, "IoError", result.SoftFailures[0].Kind)
	assert.Equal(t, "shell-profile", result.SoftFailures[0].Scanner)
}

type panicScanner struct{}

func (panicScanner) Name() string    { return "panicky" }
func (panicScanner) AppName() string { return "Panicky" }
func (panicScanner) CandidatePaths(root string) []string {
	return []string{filepath.Join(root, ".env")}
}
func (panicScanner) CanHandle(string) bool { return true }
func (panicScanner) Parse(string, []byte) (*plugin.ParsedConfig, error) {
	panic("boom")
}

func TestScanRecoversScannerPanic(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).File(".env", "OPENAI_API_KEY="+testKey+"\n")
	reg := plugin.NewScannerRegistry().MustRegister(panicScanner{}, scanners.NewDotenv())
	orch := discovery.New(validators.NewRegistry(), reg)

	result, err := orch.Scan(context.Background(), discovery.Options{Root: home.Root()})
	require.NoError(t, err)

	require.Len(t, result.Keys, 1)
	require.Len(t, result.SoftFailures, 1)
	assert.Equal(t, "panicky", result.SoftFailures[0].Scanner)
	assert.Equal(t, "ParseError", result.SoftFailures[0].Kind)
	assert.Contains(t, result.SoftFailures[0].Message, "boom")
	// both scanners saw the same file
	assert.Equal(t, 1, result.FilesScanned)
}

// TestScanIsIdempotent validates stable hashes and dedup across repeated scans
func TestScanIsIdempotent(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).
		File(".env", "OPENAI_API_KEY="+testKey+"\nOTHER_OPENAI_KEY="+testKey+"xyz\n").
		File(".env.local", "OPENAI_API_KEY="+testKey+"\n").
		File(".zshrc", "export OPENAI_API_KEY="+testKey+"\nexport OPENAI_API_KEY="+testKey+"\n")

	first := scan(t, home.Root())
	second := scan(t, home.Root())

	hashes := func(r *credential.ScanResult) []string {
		var out []string
		for _, k := range r.Keys {
			out = append(out, k.Hash()+" "+k.Source.Path)
		}
		return out
	}
	assert.Equal(t, hashes(first), hashes(second))

	// one per (value, file): .env has two values, .env.local and .zshrc one each
	assert.Len(t, first.Keys, 4)
	seen := map[string]bool{}
	for _, k := range first.Keys {
		assert.False(t, seen[k.DedupKey()], "duplicate %s", k)
		seen[k.DedupKey()] = true
	}
}

// TestScanUntaggedCandidates validates best-score attribution of untagged values
func TestScanUntaggedCandidates(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).File(".env", "MY_SERVICE_TOKEN=gsk_abcdefghijklmnopqrst\nMY_SECRET_TOKEN=zzzz_zzzz_zzzz_zz\n")

	result := scan(t, home.Root())
	require.Len(t, result.Keys, 2)
	assert.Equal(t, "groq", result.Keys[0].Provider)
	assert.Equal(t, credential.ConfidenceVeryHigh, result.Keys[0].Confidence)
	assert.Equal(t, credential.ValueTypeAccessToken, result.Keys[0].ValueType)
	assert.True(t, result.Keys[0].Inferred)

	// nothing reaches the Medium threshold for the second value
	assert.Equal(t, "", result.Keys[1].Provider)
	assert.Equal(t, credential.ConfidenceLow, result.Keys[1].Confidence)
	assert.False(t, result.Keys[1].Inferred)
}

// TestScanLeavesUnrelatedSecretsUnclaimed validates that tokens of services
// without a validator are not attributed to a provider that handles every file
func TestScanLeavesUnrelatedSecretsUnclaimed(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).File(".env", `GITHUB_TOKEN=ghp_abcdefghijklmnop1234
DB_PASSWORD_SECRET=correcthorsebatterystaple
OPENAI_API_KEY=plainvalue123
`)

	result := scan(t, home.Root())
	require.Len(t, result.Keys, 3)
	for _, k := range result.Keys[:2] {
		assert.Equal(t, "", k.Provider, k.Metadata["field"])
		assert.Equal(t, credential.ConfidenceLow, k.Confidence)
	}

	// a tagged value keeps its provider floor
	assert.Equal(t, "openai", result.Keys[2].Provider)
	assert.Equal(t, credential.ConfidenceMedium, result.Keys[2].Confidence)
	assert.False(t, result.Keys[2].Inferred)

	only := scan(t, home.Root(), func(o *discovery.Options) { o.OnlyProviders = []string{"openai"} })
	require.Len(t, only.Keys, 1)
	assert.Equal(t, "OPENAI_API_KEY", only.Keys[0].Metadata["field"])
}

// fixedValidator scores every value the same.
type fixedValidator struct {
	name  string
	score float64
}

func (v fixedValidator) Name() string                   { return v.name }
func (v fixedValidator) ProviderID() string             { return v.name }
func (v fixedValidator) ConfidenceScore(string) float64 { return v.score }
func (v fixedValidator) CanHandle(string) bool          { return true }

// TestScanTieGoesToFirstRegisteredValidator validates deterministic
// attribution when two validators score a value equally
func TestScanTieGoesToFirstRegisteredValidator(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).File(".env", "MY_SERVICE_TOKEN=abcdefghijklmnopqrst\n")
	alpha := fixedValidator{name: "alpha", score: 0.8}
	beta := fixedValidator{name: "beta", score: 0.8}

	tests := []struct {
		name  string
		order []plugin.Validator
		want  string
	}{
		{"alpha first", []plugin.Validator{alpha, beta}, "alpha"},
		{"beta first", []plugin.Validator{beta, alpha}, "beta"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			vals := plugin.NewValidatorRegistry().MustRegister(tt.order...)
			orch := discovery.New(vals, scanners.NewRegistry(scanners.WithoutGitleaks()))
			for i := 0; i < 3; i++ {
				result, err := orch.Scan(context.Background(), discovery.Options{Root: home.Root()})
				require.NoError(t, err)
				require.Len(t, result.Keys, 1)
				assert.Equal(t, tt.want, result.Keys[0].Provider)
				assert.Equal(t, credential.ConfidenceHigh, result.Keys[0].Confidence)
			}
		})
	}
}

// TestScanSharesSealedDuplicates validates that releasing the reported keys
// releases every retained copy of a value
func TestScanSharesSealedDuplicates(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).File(".env", "OPENAI_API_KEY="+testKey+"\nOTHER_OPENAI_KEY="+testKey+"\n")
	result := scan(t, home.Root(), func(o *discovery.Options) { o.IncludeFullValues = true })

	require.Len(t, result.Keys, 1)
	require.Len(t, result.ConfigInstances, 1)
	require.Len(t, result.ConfigInstances[0].Keys, 1)

	result.Keys[0].Release()
	_, ok := result.ConfigInstances[0].Keys[0].RawValue()
	assert.False(t, ok)
}

// TestScanProviderFilters validates only-before-exclude semantics on keys
func TestScanProviderFilters(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).File(".env", `OPENAI_API_KEY=sk-test1234567890
ANTHROPIC_API_KEY=sk-ant-api03-abcdefghij
LANGCHAIN_API_KEY=lsv2_pt_0123456789abcdef
MY_SECRET_TOKEN=zzzz_zzzz_zzzz_zz
`)

	tests := []struct {
		name    string
		only    []string
		exclude []string
		want    []string
	}{
		{"no filters", nil, nil, []string{"openai", "anthropic", "langchain", ""}},
		{"only openai drops unclaimed", []string{"openai"}, nil, []string{"openai"}},
		{"only anthropic", []string{"anthropic"}, nil, []string{"anthropic"}},
		{"exclude openai", nil, []string{"OpenAI"}, []string{"anthropic", "langchain", ""}},
		{"in both lists", []string{"openai", "anthropic"}, []string{"openai"}, []string{"anthropic"}},
		{"only non-validator provider", []string{"langchain"}, nil, []string{"langchain"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := scan(t, home.Root(), func(o *discovery.Options) {
				o.OnlyProviders = tt.only
				o.ExcludeProviders = tt.exclude
			})
			var got []string
			for _, k := range result.Keys {
				got = append(got, k.Provider)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanWalksDirectories(t *testing.T) {
	t.Parallel()

	storage := ".config/Code/User/globalStorage/rooveterinaryinc.roo-cline"
	home := testutil.NewHome(t).
		File(storage+"/settings/b.json", `{"openRouterApiKey": "sk-or-v1-abcdef0123456789"}`).
		File(storage+"/settings/a.json", `{"anthropicApiKey": "sk-ant-api03-abcdef0123"}`).
		File(storage+"/tasks/1/api_conversation_history.json", `{"apiKey": "sk-ant-api03-ignored00"}`).
		File(storage+"/notes.txt", "not json")

	result := scan(t, home.Root())

	require.Len(t, result.Keys, 2)
	assert.Equal(t, "anthropic", result.Keys[0].Provider)
	assert.Equal(t, "openrouter", result.Keys[1].Provider)
	assert.Equal(t, 2, result.FilesScanned)
	// storage root, settings, tasks, tasks/1
	assert.Equal(t, 4, result.DirectoriesScanned)

	require.Len(t, result.ConfigInstances, 2)
	assert.Equal(t, "roo-code", result.ConfigInstances[0].AppName)
}

func TestScanRootErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	tests := []struct {
		name string
		root string
		want error
	}{
		{"missing", filepath.Join(dir, "missing"), aicerrors.ErrNotFound},
		{"not a directory", file, aicerrors.ErrConfig},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := newOrchestrator().Scan(context.Background(), discovery.Options{Root: tt.root})
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestScanUnreadableRoot(t *testing.T) {
	testutil.SkipIfRoot(t)
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "locked")
	require.NoError(t, os.Mkdir(dir, 0o700))
	require.NoError(t, os.Chmod(dir, 0))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	_, err := newOrchestrator().Scan(context.Background(), discovery.Options{Root: dir})
	assert.ErrorIs(t, err, aicerrors.ErrIO)
}

func TestScanDefaultsToHomeDirectory(t *testing.T) {
	home := testutil.NewHome(t).File(".env", "OPENAI_API_KEY="+testKey+"\n")

	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	t.Setenv("HOME", home.Root())

	result, err := newOrchestrator().Scan(context.Background(), discovery.Options{})
	require.NoError(t, err)
	assert.Equal(t, home.Root(), result.HomeDirectory)
	assert.Len(t, result.Keys, 1)

	resolved, err := discovery.ResolveRoot("~/")
	require.NoError(t, err)
	assert.Equal(t, home.Root(), resolved)
}

func TestScanCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newOrchestrator().Scan(ctx, discovery.Options{Root: testutil.NewHome(t).Root()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanConcurrentCallers(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).
		File(".env", "OPENAI_API_KEY="+testKey+"\n").
		File(".gshrc", "GSH_FAST_MODEL_API_KEY=gsk_fast0123456789abcdef\n")
	orch := newOrchestrator()

	var wg sync.WaitGroup
	results := make([]*credential.ScanResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := orch.Scan(context.Background(), discovery.Options{Root: home.Root(), Concurrency: 2})
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Len(t, r.Keys, 2)
	}
}

func TestPlanListsCandidatePaths(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).File(".env", "A=b\n").File(".gshrc", "")
	root, plan, err := newOrchestrator().Plan(home.Root())
	require.NoError(t, err)
	assert.Equal(t, home.Root(), root)
	require.Len(t, plan, 8)

	byName := map[string][]string{}
	for _, p := range plan {
		byName[p.Scanner] = p.Paths
	}
	assert.Equal(t, []string{home.Path(".env")}, byName["dotenv"])
	assert.Equal(t, []string{home.Path(".gshrc")}, byName["gsh"])
	assert.Empty(t, byName["goose"])
}

func TestScanLogging(t *testing.T) {
	t.Parallel()

	home := testutil.NewHome(t).File(".env", "OPENAI_API_KEY="+testKey+"\n")

	debug := testutil.NewTestLoggerWithDebug(t, true)
	full, err := newOrchestrator(discovery.WithLogger(debug.Logger())).
		Scan(context.Background(), discovery.Options{Root: home.Root(), IncludeFullValues: true})
	require.NoError(t, err)
	t.Cleanup(full.Release)
	debug.AssertLogCount(t, "debug", 2)
	debug.AssertContains(t, "scan found 1 keys")
	debug.AssertNotContains(t, testKey)

	quiet := testutil.NewTestLogger(t)
	_, err = newOrchestrator(discovery.WithLogger(quiet.Logger())).
		Scan(context.Background(), discovery.Options{Root: home.Root()})
	require.NoError(t, err)
	quiet.AssertEmpty(t)
}
