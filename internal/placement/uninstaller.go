package placement

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/placekit-labs/placekit/internal/metrics"
	"github.com/placekit-labs/placekit/internal/rest"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Criterion selects the bindings to remove.
type Criterion func(Binding) bool

// MatchAll selects every binding.
func MatchAll() Criterion {
	return func(Binding) bool { return true }
}

// MatchPlacements selects bindings whose placement is one of codes.
func MatchPlacements(codes ...string) Criterion {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return func(b Binding) bool { return set[b.Placement] }
}

// MatchHandler selects bindings whose handler equals handler exactly.
func MatchHandler(handler string) Criterion {
	return func(b Binding) bool { return b.Handler == handler }
}

// MatchHandlerPrefix selects bindings whose handler starts with prefix.
func MatchHandlerPrefix(prefix string) Criterion {
	return func(b Binding) bool { return strings.HasPrefix(b.Handler, prefix) }
}

// And selects bindings matched by every criterion.
func And(cs ...Criterion) Criterion {
	return func(b Binding) bool {
		for _, c := range cs {
			if !c(b) {
				return false
			}
		}
		return true
	}
}

// Uninstaller removes placement bindings from the portal.
type Uninstaller struct {
	conn        Connector
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// NewUninstaller creates an Uninstaller that obtains its client from conn.
func NewUninstaller(conn Connector, opts ...Option) *Uninstaller {
	o := buildOptions(opts)
	return &Uninstaller{
		conn:        conn,
		concurrency: o.concurrency,
		logger:      o.logger,
		metrics:     o.metrics,
	}
}

// List returns the bindings currently registered for the app.
func (u *Uninstaller) List(ctx context.Context) ([]Binding, error) {
	caller, err := u.conn.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	return listBindings(ctx, caller)
}

// Remove unbinds every binding selected by match. Unbind calls run
// concurrently; their outcomes are logged as they complete and stored in
// the report in listing order.
func (u *Uninstaller) Remove(ctx context.Context, match Criterion) (*Report, error) {
	caller, err := u.conn.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	bindings, err := listBindings(ctx, caller)
	if err != nil {
		return nil, err
	}

	var selected []Binding
	for _, b := range bindings {
		if match(b) {
			selected = append(selected, b)
		}
	}

	report := &Report{Outcomes: make([]Outcome, len(selected))}
	var g errgroup.Group
	if u.concurrency > 0 {
		g.SetLimit(u.concurrency)
	}
	for i, b := range selected {
		i, b := i, b
		g.Go(func() error {
			report.Outcomes[i] = u.unbind(ctx, caller, i, b)
			return nil
		})
	}
	_ = g.Wait()

	u.logger.Info("placement removal finished",
		zap.Int("listed", len(bindings)),
		zap.Int("matched", len(selected)),
		zap.Int("failed", len(report.Failed())),
	)
	return report, nil
}

func (u *Uninstaller) unbind(ctx context.Context, caller rest.Caller, i int, b Binding) Outcome {
	cmd := UnbindCommand(b)
	out := Outcome{
		Key:       fmt.Sprintf("placement_unbind_%d", i),
		Placement: b.Placement,
		Handler:   b.Handler,
	}

	resp, err := caller.CallMethod(ctx, cmd.Method, cmd.Params)
	fields := []zap.Field{
		zap.String("placement", out.Placement),
		zap.String("handler", out.Handler),
	}
	if err != nil {
		out.Err = err
		u.logger.Error("placement unbind failed", append(fields, zap.Error(err))...)
	} else {
		out.Data = resp.Result
		u.logger.Info("placement unbound", append(fields, zap.ByteString("result", resp.Result))...)
	}
	u.metrics.RecordUnbind(out.Placement, out.OK())
	return out
}

func listBindings(ctx context.Context, caller rest.Caller) ([]Binding, error) {
	resp, err := caller.CallMethod(ctx, rest.MethodPlacementGet, nil)
	if err != nil {
		return nil, fmt.Errorf("listing placements: %w", err)
	}
	raw := bytes.TrimSpace(resp.Result)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var bindings []Binding
	if err := resp.Decode(&bindings); err != nil {
		return nil, fmt.Errorf("listing placements: %w", err)
	}
	return bindings, nil
}
