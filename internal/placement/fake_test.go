package placement

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/placekit-labs/placekit/internal/handshake"
	"github.com/placekit-labs/placekit/internal/rest"
)

type bindingKey struct {
	placement string
	handler   string
}

// fakePlatform is an in-memory rest.Caller whose binds upsert by
// (PLACEMENT, HANDLER).
type fakePlatform struct {
	mu sync.Mutex

	bindings   map[bindingKey]Binding
	order      []bindingKey
	failBind   map[string]*rest.Error
	failUnbind map[string]*rest.Error
	dropKeys   map[string]bool
	batchErr   error

	batches [][]rest.Command
	unbinds []rest.Params

	unbindDelay time.Duration
	inFlight    int
	maxInFlight int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		bindings:   make(map[bindingKey]Binding),
		failBind:   make(map[string]*rest.Error),
		failUnbind: make(map[string]*rest.Error),
		dropKeys:   make(map[string]bool),
	}
}

func (f *fakePlatform) connector() Connector {
	return handshake.Resolved(f)
}

func (f *fakePlatform) seed(bs ...Binding) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range bs {
		f.putLocked(b)
	}
}

func (f *fakePlatform) putLocked(b Binding) {
	k := bindingKey{b.Placement, b.Handler}
	if _, ok := f.bindings[k]; !ok {
		f.order = append(f.order, k)
	}
	f.bindings[k] = b
}

func (f *fakePlatform) list() []Binding {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Binding
	for _, k := range f.order {
		if b, ok := f.bindings[k]; ok {
			out = append(out, b)
		}
	}
	return out
}

func (f *fakePlatform) CallMethod(ctx context.Context, method string, params rest.Params) (*rest.Response, error) {
	switch method {
	case rest.MethodPlacementGet:
		data, err := json.Marshal(f.list())
		if err != nil {
			return nil, err
		}
		return &rest.Response{Result: data}, nil

	case rest.MethodPlacementUnbind:
		f.mu.Lock()
		f.unbinds = append(f.unbinds, params)
		f.inFlight++
		f.maxInFlight = max(f.maxInFlight, f.inFlight)
		delay := f.unbindDelay
		f.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		f.inFlight--
		placement, _ := params["PLACEMENT"].(string)
		handler, _ := params["HANDLER"].(string)
		if e, ok := f.failUnbind[placement]; ok {
			return nil, e
		}
		count := 0
		k := bindingKey{placement, handler}
		if _, ok := f.bindings[k]; ok {
			delete(f.bindings, k)
			count = 1
		}
		return &rest.Response{Result: json.RawMessage(fmt.Sprintf(`{"count":%d}`, count))}, nil

	case rest.MethodUserCurrent:
		return &rest.Response{Result: json.RawMessage(`{"ID":"1"}`)}, nil
	}
	return nil, &rest.Error{Code: "ERROR_METHOD_NOT_FOUND"}
}

func (f *fakePlatform) CallBatch(ctx context.Context, cmds []rest.Command) (rest.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batches = append(f.batches, cmds)
	if f.batchErr != nil {
		return nil, f.batchErr
	}

	res := make(rest.BatchResult, len(cmds))
	for _, cmd := range cmds {
		if f.dropKeys[cmd.Key] {
			continue
		}
		placement, _ := cmd.Params["PLACEMENT"].(string)
		if e, ok := f.failBind[placement]; ok {
			res[cmd.Key] = rest.NewItemResult(nil, e)
			continue
		}
		f.putLocked(Binding{
			Placement:   placement,
			Handler:     cmd.Params["HANDLER"].(string),
			Title:       cmd.Params["TITLE"].(string),
			Description: cmd.Params["DESCRIPTION"].(string),
		})
		res[cmd.Key] = rest.NewItemResult(json.RawMessage("true"), nil)
	}
	return res, nil
}
