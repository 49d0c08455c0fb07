package placement

import (
	"context"

	"github.com/placekit-labs/placekit/internal/manifest"
	"github.com/placekit-labs/placekit/internal/rest"
)

// Spec declares one placement to bind.
type Spec struct {
	ID          string
	Title       string
	Description string
}

// SpecsFromManifest converts manifest placements in declaration order.
func SpecsFromManifest(m *manifest.Manifest) []Spec {
	specs := make([]Spec, len(m.Placements))
	for i, p := range m.Placements {
		specs[i] = Spec{ID: p.Placement, Title: p.Title, Description: p.Description}
	}
	return specs
}

// Connector yields a ready portal client. *handshake.Handshake implements it.
type Connector interface {
	Initialize(ctx context.Context) (rest.Caller, error)
}
