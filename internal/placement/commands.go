package placement

import (
	"fmt"

	"github.com/placekit-labs/placekit/internal/rest"
)

// BindKey returns the batch key of the Spec at index i.
func BindKey(i int) string {
	return fmt.Sprintf("placement_bind_%d", i)
}

// BuildBindCommands returns one placement.bind command per spec, keyed by
// the Spec's position.
func BuildBindCommands(specs []Spec, handlerURL string) []rest.Command {
	cmds := make([]rest.Command, len(specs))
	for i, s := range specs {
		cmds[i] = rest.Command{
			Key:    BindKey(i),
			Method: rest.MethodPlacementBind,
			Params: rest.Params{
				"PLACEMENT":   s.ID,
				"HANDLER":     handlerURL,
				"TITLE":       s.Title,
				"DESCRIPTION": s.Description,
			},
		}
	}
	return cmds
}

// Binding is one entry returned by placement.get.
type Binding struct {
	Placement   string `json:"placement"`
	Handler     string `json:"handler"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UnbindCommand builds the placement.unbind call for an observed binding.
// HANDLER is the binding's own handler string, unmodified.
func UnbindCommand(b Binding) rest.Command {
	return rest.Command{
		Method: rest.MethodPlacementUnbind,
		Params: rest.Params{
			"PLACEMENT": b.Placement,
			"HANDLER":   b.Handler,
			"TITLE":     b.Title,
		},
	}
}
