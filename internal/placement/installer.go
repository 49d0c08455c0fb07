package placement

import (
	"context"
	"fmt"

	"github.com/placekit-labs/placekit/internal/manifest"
	"github.com/placekit-labs/placekit/internal/metrics"
	"github.com/placekit-labs/placekit/internal/rest"
	"go.uber.org/zap"
)

// Installer binds placements on the portal.
type Installer struct {
	conn      Connector
	handler   *handlerRewriter
	batchSize int
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures an Installer or Uninstaller.
type Option func(*options)

type options struct {
	entryFile   string
	widgetFile  string
	batchSize   int
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

func buildOptions(opts []Option) options {
	o := options{
		entryFile:  manifest.DefaultEntryFile,
		widgetFile: manifest.DefaultWidgetFile,
		batchSize:  rest.MaxBatchSize,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithFiles sets the entry-page and widget filenames used to derive the
// handler URL.
func WithFiles(entryFile, widgetFile string) Option {
	return func(o *options) {
		if entryFile != "" {
			o.entryFile = entryFile
		}
		if widgetFile != "" {
			o.widgetFile = widgetFile
		}
	}
}

// WithBatchSize caps the commands sent per batch. Values outside
// 1..rest.MaxBatchSize are ignored.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 && n <= rest.MaxBatchSize {
			o.batchSize = n
		}
	}
}

// WithConcurrency limits in-flight unbind calls. Zero means no limit.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the logger outcomes are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics counts outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// NewInstaller creates an Installer that obtains its client from conn.
func NewInstaller(conn Connector, opts ...Option) *Installer {
	o := buildOptions(opts)
	return &Installer{
		conn:      conn,
		handler:   newHandlerRewriter(o.entryFile, o.widgetFile),
		batchSize: o.batchSize,
		logger:    o.logger,
		metrics:   o.metrics,
	}
}

// Plan returns the handler URL and the commands Install would send.
func (in *Installer) Plan(specs []Spec, pageURL string) (string, []rest.Command, error) {
	handlerURL, warning := in.handler.derive(pageURL)
	return handlerURL, BuildBindCommands(specs, handlerURL), warning
}

// Install binds every spec to the handler URL derived from pageURL.
//
// Per-item failures are logged and recorded in the report. The error is
// non-nil only when the handshake fails or a batch cannot be submitted; in
// the latter case the report holds the outcomes of earlier batches.
func (in *Installer) Install(ctx context.Context, specs []Spec, pageURL string) (*Report, error) {
	caller, err := in.conn.Initialize(ctx)
	if err != nil {
		return nil, err
	}

	handlerURL, cmds, warning := in.Plan(specs, pageURL)
	report := &Report{HandlerURL: handlerURL}
	if warning != nil {
		report.Warnings = append(report.Warnings, warning)
		in.logger.Warn("suspicious handler URL", zap.String("handler", handlerURL), zap.Error(warning))
	}

	for start := 0; start < len(cmds); start += in.batchSize {
		end := min(start+in.batchSize, len(cmds))
		chunk := cmds[start:end]

		res, err := caller.CallBatch(ctx, chunk)
		if err != nil {
			return report, fmt.Errorf("submitting bind batch %s..%s: %w", chunk[0].Key, chunk[len(chunk)-1].Key, err)
		}
		in.reconcile(report, chunk, specs[start:end], res)
	}

	in.logger.Info("placement install finished",
		zap.String("handler", handlerURL),
		zap.Int("bound", len(report.Succeeded())),
		zap.Int("failed", len(report.Failed())),
	)
	return report, nil
}

func (in *Installer) reconcile(report *Report, cmds []rest.Command, specs []Spec, res rest.BatchResult) {
	for i, cmd := range cmds {
		out := Outcome{
			Key:       cmd.Key,
			Placement: specs[i].ID,
			Handler:   report.HandlerURL,
		}
		item, ok := res[cmd.Key]
		switch {
		case !ok:
			out.Err = ErrNoResult
		case item.Err() != nil:
			out.Err = item.Err()
		default:
			out.Data = item.Data()
		}
		report.Outcomes = append(report.Outcomes, out)

		fields := []zap.Field{
			zap.String("key", out.Key),
			zap.String("placement", out.Placement),
			zap.String("handler", out.Handler),
		}
		if out.Err != nil {
			in.logger.Error("placement bind failed", append(fields, zap.Error(out.Err))...)
		} else {
			in.logger.Info("placement bound", append(fields, zap.ByteString("result", out.Data))...)
		}
		in.metrics.RecordBind(out.Placement, out.OK())
	}
}
