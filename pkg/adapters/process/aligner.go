package process

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aretw0/domaindetect/internal/fasta"
	"github.com/aretw0/domaindetect/internal/hits"
	"github.com/aretw0/domaindetect/internal/logging"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
	"golang.org/x/time/rate"
)

// gracePeriod is how long a canceled tool gets between SIGINT and SIGKILL.
const gracePeriod = 5 * time.Second

// maxStderr bounds how much of the tool's stderr ends up in an error message.
const maxStderr = 2048

// Aligner implements ports.Aligner by running an external search tool once per chain.
type Aligner struct {
	tool    ToolConfig
	format  hits.Format
	timeout time.Duration
	limiter *rate.Limiter
	baseDir string
	logger  *slog.Logger

	calls atomic.Int64
}

var _ ports.Aligner = (*Aligner)(nil)

// Option configures the aligner.
type Option func(*Aligner)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(a *Aligner) {
		a.baseDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aligner) {
		a.logger = logger
	}
}

// WithLimiter overrides the limiter derived from the tool config.
func WithLimiter(l *rate.Limiter) Option {
	return func(a *Aligner) {
		a.limiter = l
	}
}

// NewAligner validates the tool and builds an aligner for it.
func NewAligner(tool ToolConfig, opts ...Option) (*Aligner, error) {
	if err := tool.Validate(); err != nil {
		return nil, err
	}
	format := hits.FormatTabular
	if tool.Format != "" {
		f, err := hits.ParseFormat(tool.Format)
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", tool.Name, err)
		}
		format = f
	}
	timeout, _ := tool.timeout()

	a := &Aligner{
		tool:    tool,
		format:  format,
		timeout: timeout,
		logger:  logging.NewNop(),
	}
	if tool.Rate > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(tool.Rate), max(tool.Burst, 1))
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Calls returns how many times the tool was started.
func (a *Aligner) Calls() int64 {
	return a.calls.Load()
}

// Search runs the tool for one chain and parses its output.
// Every returned hit is attributed to the searched chain.
func (a *Aligner) Search(ctx context.Context, chain domain.Chain, lib *domain.Library) ([]domain.CandidateHit, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	version := ""
	if lib != nil {
		version = lib.Version
	}
	expand := strings.NewReplacer("{chain_id}", chain.ID, "{library_version}", version)

	args := make([]string, len(a.tool.Args))
	for i, arg := range a.tool.Args {
		args[i] = expand.Replace(arg)
	}

	var stdin bytes.Buffer
	if err := fasta.Write(&stdin, chain); err != nil {
		return nil, fmt.Errorf("failed to encode chain: %w", err)
	}

	cmd := exec.CommandContext(ctx, a.tool.Command, args...)
	cmd.Dir = a.baseDir
	cmd.Stdin = &stdin
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = gracePeriod

	env := []string{
		"DOMAINDETECT_CHAIN_ID=" + chain.ID,
		"DOMAINDETECT_LIBRARY_VERSION=" + version,
	}
	for k, v := range a.tool.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, expand.Replace(v)))
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	a.calls.Add(1)
	start := time.Now()
	err := cmd.Run()
	a.logger.Debug("Alignment tool finished",
		"tool", a.tool.Name,
		"chain_id", chain.ID,
		"duration", time.Since(start),
		"err", err,
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("tool %s interrupted: %w", a.tool.Name, ctxErr)
		}
		return nil, fmt.Errorf("tool %s failed: %w. Stderr: %s", a.tool.Name, err, tail(stderr.String()))
	}

	found, err := hits.Read(&stdout, a.format, hits.Options{JSONPath: a.tool.JSONPath, Library: lib})
	if err != nil {
		return nil, fmt.Errorf("tool %s produced unreadable output: %w", a.tool.Name, err)
	}
	for i := range found {
		found[i].ChainID = chain.ID
	}
	return found, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return "..." + s[len(s)-maxStderr:]
	}
	return s
}
