package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/domaindetect/pkg/adapters/process"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell fixtures need a POSIX sh")
	}
}

func shTool(name, script string) process.ToolConfig {
	return process.ToolConfig{
		Name:    name,
		Command: "sh",
		Args:    []string{"-c", script},
	}
}

var testLib = func() *domain.Library {
	lib, _ := domain.NewLibrary("lib-1", []domain.LibraryDomain{
		{ID: "IGHV", Length: 100},
		{ID: "IGHC", Length: 100},
	})
	return lib
}()

func TestAligner_Tabular(t *testing.T) {
	requireShell(t)

	// Rows echo the chain ID from the FASTA header on stdin.
	script := `read header; id=${header#>}
printf '%s\tIGHV\t95.0\t100\t5\t0\t1\t100\t1\t100\t1e-40\t180\n' "$id"
printf '%s\tIGHC\t40.0\t50\t30\t0\t101\t150\t1\t50\t0.5\t20\t50\n' "$id"`

	a, err := process.NewAligner(shTool("fake-blast", script))
	require.NoError(t, err)

	got, err := a.Search(context.Background(), domain.Chain{ID: "H", Sequence: "EVQL"}, testLib)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.CandidateHit{
		ChainID: "H", LibraryDomainID: "IGHV", Start: 0, End: 100,
		PercentIdentity: 95, PercentCoverage: 100, EValue: 1e-40,
	}, got[0])
	assert.Equal(t, 100, got[1].Start)
	assert.Equal(t, 50.0, got[1].PercentCoverage)
	assert.Equal(t, int64(1), a.Calls())
}

func TestAligner_JSONWithPath(t *testing.T) {
	requireShell(t)

	tool := shTool("fake-json", `cat <<EOF
{"query": "$DOMAINDETECT_CHAIN_ID", "results": {"hits": [
  {"chain_id": "ignored", "library_domain_id": "IGHV", "start": 0, "end": 98, "percent_identity": 90, "percent_coverage": 99, "evalue": 1e-30}
]}}
EOF`)
	tool.Format = "json"
	tool.JSONPath = "$.results.hits"

	a, err := process.NewAligner(tool)
	require.NoError(t, err)

	got, err := a.Search(context.Background(), domain.Chain{ID: "L", Sequence: "DIQM"}, testLib)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "L", got[0].ChainID)
	assert.Equal(t, 98, got[0].End)
}

func TestAligner_ArgumentExpansion(t *testing.T) {
	requireShell(t)

	out := filepath.Join(t.TempDir(), "args.txt")
	tool := process.ToolConfig{
		Name:        "recorder",
		Command:     "sh",
		Args:        []string{"-c", `echo "$1 $2 $EXTRA" > "$OUT"`, "sh", "{chain_id}", "{library_version}"},
		Environment: map[string]string{"OUT": out, "EXTRA": "db-{library_version}"},
	}
	a, err := process.NewAligner(tool)
	require.NoError(t, err)

	got, err := a.Search(context.Background(), domain.Chain{ID: "K", Sequence: "RTVA"}, testLib)
	require.NoError(t, err)
	assert.Empty(t, got)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "K lib-1 db-lib-1\n", string(data))
}

func TestAligner_Failures(t *testing.T) {
	requireShell(t)
	chain := domain.Chain{ID: "H", Sequence: "EVQL"}

	t.Run("Non-zero exit carries stderr", func(t *testing.T) {
		a, err := process.NewAligner(shTool("crashy", `echo "Something went terribly wrong" >&2; exit 123`))
		require.NoError(t, err)

		_, err = a.Search(context.Background(), chain, testLib)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exit status 123")
		assert.Contains(t, err.Error(), "Something went terribly wrong")
	})

	t.Run("Garbage output", func(t *testing.T) {
		a, err := process.NewAligner(shTool("garbage", `echo "not a hit row"`))
		require.NoError(t, err)

		_, err = a.Search(context.Background(), chain, testLib)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unreadable output")
	})

	t.Run("Timeout interrupts the tool", func(t *testing.T) {
		tool := shTool("slow", `exec sleep 10`)
		tool.Timeout = "200ms"
		a, err := process.NewAligner(tool)
		require.NoError(t, err)

		start := time.Now()
		_, err = a.Search(context.Background(), chain, testLib)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("Canceled context", func(t *testing.T) {
		a, err := process.NewAligner(shTool("never", `exit 0`), process.WithLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))
		require.NoError(t, err)

		// Drain the only token so the next Wait has to block.
		_, err = a.Search(context.Background(), chain, testLib)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = a.Search(ctx, chain, testLib)
		require.Error(t, err)
		assert.Equal(t, int64(1), a.Calls())
	})
}

func TestNewAligner_Invalid(t *testing.T) {
	_, err := process.NewAligner(process.ToolConfig{Name: "x"})
	assert.Error(t, err)

	_, err = process.NewAligner(process.ToolConfig{Name: "x", Command: "true", Format: "xml"})
	assert.Error(t, err)

	_, err = process.NewAligner(process.ToolConfig{Name: "x", Command: "true", Timeout: "soon"})
	assert.Error(t, err)
}

func TestLoadTools(t *testing.T) {
	dir := t.TempDir()

	tools, err := process.LoadTools(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, tools)

	path := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tools:
  - name: hmmscan
    command: hmmscan
    args: ["--tblout", "/dev/stdout", "db/{library_version}.hmm", "-"]
    format: tsv
    rate: 2
    burst: 4
    timeout: 30s
  - command: ignored-without-name
`), 0644))

	tools, err = process.LoadTools(path)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "hmmscan", tools["hmmscan"].Command)
	assert.Equal(t, 2.0, tools["hmmscan"].Rate)

	bad := filepath.Join(dir, "tools.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"tools":[{"name":"x"}]}`), 0644))
	_, err = process.LoadTools(bad)
	assert.Error(t, err)
}
