package placement

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/placekit-labs/placekit/internal/handshake"
	"github.com/placekit-labs/placekit/internal/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func seededBindings() []Binding {
	return []Binding{
		{Placement: "CRM_DEAL_DETAIL_TAB", Handler: "https://a.example.com/widget.html", Title: "Problems"},
		{Placement: "CRM_COMPANY_DETAIL_TAB", Handler: "https://a.example.com/widget.html", Title: "Problems"},
		{Placement: "CRM_CONTACT_DETAIL_TAB", Handler: "https://a.example.com/widget.html", Title: "Problems"},
		// Handler kept exactly as the portal stored it, odd casing and query included.
		{Placement: "CRM_DEAL_DETAIL_TAB", Handler: "HTTPS://Old.Example.com/Widget.html?v=2&x=%20", Title: "Old"},
		{Placement: "CRM_LEAD_DETAIL_TAB", Handler: "https://other.example.com/tab.html", Title: "Other"},
	}
}

func TestRemove_OnlyMatchingBindings(t *testing.T) {
	tests := []struct {
		name  string
		match Criterion
		want  []Binding
	}{
		{
			name:  "all",
			match: MatchAll(),
			want:  seededBindings(),
		},
		{
			name:  "by placement",
			match: MatchPlacements("CRM_DEAL_DETAIL_TAB"),
			want:  []Binding{seededBindings()[0], seededBindings()[3]},
		},
		{
			name:  "by handler",
			match: MatchHandler("https://a.example.com/widget.html"),
			want:  seededBindings()[:3],
		},
		{
			name:  "placement and handler prefix",
			match: And(MatchPlacements("CRM_DEAL_DETAIL_TAB"), MatchHandlerPrefix("HTTPS://Old.")),
			want:  []Binding{seededBindings()[3]},
		},
		{
			name:  "none",
			match: MatchPlacements("CRM_INVOICE_DETAIL_TAB"),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakePlatform()
			fake.seed(seededBindings()...)

			report, err := NewUninstaller(fake.connector()).Remove(context.Background(), tt.match)
			require.NoError(t, err)

			require.Len(t, fake.unbinds, len(tt.want))
			require.Len(t, report.Outcomes, len(tt.want))

			got := make([]Binding, len(fake.unbinds))
			for i, p := range fake.unbinds {
				got[i] = Binding{
					Placement: p["PLACEMENT"].(string),
					Handler:   p["HANDLER"].(string),
					Title:     p["TITLE"].(string),
				}
			}
			assert.ElementsMatch(t, tt.want, got)

			for i, out := range report.Outcomes {
				assert.True(t, out.OK())
				assert.Equal(t, tt.want[i].Handler, out.Handler, "outcomes stay in listing order")
			}
			assert.Len(t, fake.list(), len(seededBindings())-len(tt.want))
		})
	}
}

func TestRemove_FailuresArePerItem(t *testing.T) {
	fake := newFakePlatform()
	fake.seed(seededBindings()...)
	fake.failUnbind["CRM_COMPANY_DETAIL_TAB"] = &rest.Error{Code: "ERROR_ACCESS_DENIED"}

	core, logs := observer.New(zapcore.InfoLevel)
	report, err := NewUninstaller(fake.connector(), WithLogger(zap.New(core))).
		Remove(context.Background(), MatchHandler("https://a.example.com/widget.html"))
	require.NoError(t, err)

	assert.Len(t, report.Failed(), 1)
	assert.Len(t, report.Succeeded(), 2)
	assert.Equal(t, 1, logs.FilterMessage("placement unbind failed").Len())
	assert.Equal(t, 2, logs.FilterMessage("placement unbound").Len())
	assert.True(t, rest.IsCode(report.Err(), "ERROR_ACCESS_DENIED"))
}

func TestRemove_ConcurrencyLimit(t *testing.T) {
	fake := newFakePlatform()
	fake.seed(seededBindings()...)
	fake.unbindDelay = 20 * time.Millisecond

	_, err := NewUninstaller(fake.connector(), WithConcurrency(2)).Remove(context.Background(), MatchAll())
	require.NoError(t, err)

	assert.LessOrEqual(t, fake.maxInFlight, 2)
	assert.Len(t, fake.unbinds, len(seededBindings()))
}

func TestRemove_EmptyListing(t *testing.T) {
	fake := newFakePlatform()

	report, err := NewUninstaller(fake.connector()).Remove(context.Background(), MatchAll())
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, fake.unbinds)
	assert.NoError(t, report.Err())
}

func TestRemove_HandshakeFailure(t *testing.T) {
	h := handshake.New(func(ctx context.Context) (rest.Caller, error) {
		return nil, errors.New("portal unreachable")
	})

	_, err := NewUninstaller(h).Remove(context.Background(), MatchAll())
	var herr *handshake.Error
	assert.True(t, errors.As(err, &herr))
}

func TestList(t *testing.T) {
	fake := newFakePlatform()
	fake.seed(seededBindings()...)

	bindings, err := NewUninstaller(fake.connector()).List(context.Background())
	require.NoError(t, err)

	handlers := make([]string, len(bindings))
	for i, b := range bindings {
		handlers[i] = b.Handler
	}
	sort.Strings(handlers)
	assert.Contains(t, handlers, "HTTPS://Old.Example.com/Widget.html?v=2&x=%20")
	assert.Len(t, bindings, len(seededBindings()))
}

func TestInstallThenRemove(t *testing.T) {
	fake := newFakePlatform()
	fake.seed(Binding{Placement: "CRM_LEAD_DETAIL_TAB", Handler: "https://other.example.com/tab.html"})

	report, err := NewInstaller(fake.connector()).Install(context.Background(), makeSpecs(3), pageURL)
	require.NoError(t, err)

	removed, err := NewUninstaller(fake.connector()).Remove(context.Background(), MatchHandler(report.HandlerURL))
	require.NoError(t, err)
	assert.Len(t, removed.Succeeded(), 3)

	left := fake.list()
	require.Len(t, left, 1)
	assert.Equal(t, "CRM_LEAD_DETAIL_TAB", left[0].Placement)
}
