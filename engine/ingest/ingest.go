// Package ingest runs one TDL file through decode, provisioning and load.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"

	"github.com/compozy/tdlimport/engine/infra/monitoring"
	"github.com/compozy/tdlimport/engine/infra/repo"
	"github.com/compozy/tdlimport/engine/infra/store"
	"github.com/compozy/tdlimport/engine/loader"
	"github.com/compozy/tdlimport/engine/normalize"
	"github.com/compozy/tdlimport/engine/tdl"
	"github.com/compozy/tdlimport/pkg/config"
	"github.com/compozy/tdlimport/pkg/logger"
)

// Request is one file to ingest. Name is the file name the destination is
// derived from.
type Request struct {
	Name   string
	Data   []byte
	DryRun bool
}

// Result summarizes a run. Categories and Links count rows created by the
// run. On failure, Destination and Encoding are set as far as the run got.
type Result struct {
	Destination string `json:"destination"`
	Encoding    string `json:"encoding,omitempty"`
	TaskNodes   int    `json:"task_nodes"`
	Inserted    int    `json:"inserted"`
	Skipped     int    `json:"skipped"`
	Categories  int    `json:"categories"`
	Links       int    `json:"links"`
	DryRun      bool   `json:"dry_run"`
}

// Options tunes a Service.
type Options struct {
	Precedence        tdl.Precedence
	DestinationSuffix string
	Timeout           time.Duration
	Metrics           *monitoring.IngestMetrics
	// FS is where RunFile reads input files. Defaults to the OS filesystem.
	FS afero.Fs
}

// Service runs ingestion requests against destinations produced by an opener.
type Service struct {
	opener store.Opener
	opts   Options
}

// NewService returns a service writing through opener.
func NewService(opener store.Opener, opts Options) *Service {
	if opts.Precedence == "" {
		opts.Precedence = tdl.PreferAttributes
	}
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	return &Service{opener: opener, opts: opts}
}

// NewServiceFromConfig wires the configured driver and ingest settings.
func NewServiceFromConfig(cfg *config.Config, metrics *monitoring.IngestMetrics) (*Service, error) {
	precedence, err := tdl.ParsePrecedence(cfg.Ingest.Precedence)
	if err != nil {
		return nil, err
	}
	opener, err := repo.NewProvider(&cfg.Database).NewOpener()
	if err != nil {
		return nil, err
	}
	return NewService(opener, Options{
		Precedence:        precedence,
		DestinationSuffix: cfg.Ingest.DestinationSuffix,
		Timeout:           cfg.Ingest.Timeout,
		Metrics:           metrics,
	}), nil
}

// RunFile reads path and ingests it.
func (s *Service) RunFile(ctx context.Context, path string, dryRun bool) (*Result, error) {
	if path == "" {
		return nil, &UsageError{Reason: "file path is required", Err: ErrNoFile}
	}
	data, err := afero.ReadFile(s.opts.FS, path)
	if err != nil {
		return nil, &UsageError{Reason: "read input file", Err: err}
	}
	return s.Run(ctx, Request{Name: path, Data: data, DryRun: dryRun})
}

// Run ingests one file. A decode failure never opens the destination.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := s.run(ctx, req)
	inserted, skipped := 0, 0
	if res != nil {
		inserted, skipped = res.Inserted, res.Skipped
	}
	s.opts.Metrics.RecordRun(context.WithoutCancel(ctx), outcomeOf(err, req.DryRun), inserted, skipped, time.Since(start))
	return res, err
}

func (s *Service) run(ctx context.Context, req Request) (*Result, error) {
	if req.Name == "" {
		return nil, &UsageError{Reason: "file name is required", Err: ErrNoFile}
	}
	dest, err := store.DestinationName(req.Name, s.opts.DestinationSuffix)
	if err != nil {
		return nil, &UsageError{Reason: fmt.Sprintf("no destination name in %q", req.Name), Err: err}
	}
	log := logger.FromContext(ctx).With("destination", dest, "run_id", ksuid.New().String())
	ctx = logger.ContextWithLogger(ctx, log)
	res := &Result{Destination: dest, DryRun: req.DryRun}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	tree, err := tdl.Decode(ctx, req.Data)
	if err != nil {
		log.Error("Failed to decode input", "error", err)
		return res, err
	}
	res.Encoding = string(tree.Encoding())
	nodes := tree.Tasks(s.opts.Precedence)
	res.TaskNodes = len(nodes)
	log.Info("Number of TASK elements found", "count", len(nodes), "encoding", res.Encoding)
	log.Debug("Root children", "names", childNames(tree))

	if req.DryRun {
		res.Inserted, res.Skipped = plan(nodes)
		log.Info("Dry run complete", "would_insert", res.Inserted, "would_skip", res.Skipped)
		return res, nil
	}
	if s.opener == nil {
		return res, loader.ErrNilStore
	}

	st, err := s.opener.Open(ctx, dest)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := st.Close(context.WithoutCancel(ctx)); cerr != nil {
			log.Warn("Failed to close destination", "error", cerr)
		}
	}()
	sum, err := loader.Load(ctx, st, nodes)
	if sum != nil {
		res.Inserted, res.Skipped = sum.Inserted, sum.Skipped
		res.Categories, res.Links = sum.Categories, sum.Links
	}
	if err != nil {
		log.Error("Load failed", "error", err)
		return res, err
	}
	return res, nil
}

// plan counts the nodes a load would insert and skip.
func plan(nodes []tdl.TaskNode) (insert, skip int) {
	for _, n := range nodes {
		if _, err := normalize.Normalize(n); errors.Is(err, normalize.ErrMissingTitle) {
			skip++
			continue
		}
		insert++
	}
	return insert, skip
}

func childNames(tree *tdl.Tree) []string {
	root := tree.Root()
	if root == nil {
		return nil
	}
	children := root.ChildElements()
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Tag)
	}
	return names
}

func outcomeOf(err error, dryRun bool) monitoring.Outcome {
	var decodeErr *tdl.DecodeError
	switch {
	case err == nil && dryRun:
		return monitoring.OutcomeDryRun
	case err == nil:
		return monitoring.OutcomeSuccess
	case IsUsageError(err):
		return monitoring.OutcomeUsageError
	case errors.As(err, &decodeErr):
		return monitoring.OutcomeDecodeError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return monitoring.OutcomeCanceled
	default:
		return monitoring.OutcomeStoreFault
	}
}
