// Package resttest provides an in-memory portal that speaks the REST wire
// format, for use with net/http/httptest.
package resttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/placekit-labs/placekit/internal/rest"
)

// Binding is one stored placement binding.
type Binding struct {
	Placement   string `json:"placement"`
	Handler     string `json:"handler"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type bindingKey struct {
	placement string
	handler   string
}

// Portal stores placement bindings keyed by (placement, handler), so
// repeated binds upsert instead of duplicating.
type Portal struct {
	// Token, when set, must be passed as the auth query parameter.
	Token string

	mu       sync.Mutex
	bindings map[bindingKey]Binding
	failures map[string]*rest.Error
	calls    []string
}

// NewPortal creates an empty portal.
func NewPortal() *Portal {
	return &Portal{
		bindings: make(map[bindingKey]Binding),
		failures: make(map[string]*rest.Error),
	}
}

// NewServer starts an httptest server backed by p.
func NewServer(p *Portal) *httptest.Server {
	return httptest.NewServer(p)
}

// Seed stores bindings directly.
func (p *Portal) Seed(bs ...Binding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range bs {
		p.bindings[bindingKey{b.Placement, b.Handler}] = b
	}
}

// FailPlacement makes every bind and unbind of placement fail with e.
func (p *Portal) FailPlacement(placement string, e *rest.Error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[placement] = e
}

// Bindings returns the stored bindings sorted by placement then handler.
func (p *Portal) Bindings() []Binding {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sortedLocked()
}

// Calls returns the method names received, batch items included.
func (p *Portal) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// CountCalls returns how many times method was received.
func (p *Portal) CountCalls(method string) int {
	n := 0
	for _, c := range p.Calls() {
		if c == method {
			n++
		}
	}
	return n
}

func (p *Portal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.Token != "" && r.URL.Query().Get("auth") != p.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":             rest.CodeInvalidToken,
			"error_description": "The access token provided is invalid",
		})
		return
	}

	segment := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	method := strings.TrimSuffix(segment, ".json")

	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	if method == rest.MethodBatch {
		p.record(method)
		writeJSON(w, http.StatusOK, map[string]any{"result": p.batch(body)})
		return
	}

	result, rerr := p.dispatch(method, flatten(body))
	if rerr != nil {
		writeJSON(w, http.StatusBadRequest, rerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (p *Portal) batch(body map[string]any) map[string]any {
	cmds, _ := body["cmd"].(map[string]any)
	results := make(map[string]any)
	failures := make(map[string]any)

	for key, raw := range cmds {
		query, _ := raw.(string)
		method, rawQuery, _ := strings.Cut(query, "?")
		values, err := url.ParseQuery(rawQuery)
		if err != nil {
			failures[key] = &rest.Error{Code: "ERROR_ARGUMENT", Description: err.Error()}
			continue
		}
		params := make(map[string]string, len(values))
		for k := range values {
			params[k] = values.Get(k)
		}
		result, rerr := p.dispatch(method, params)
		if rerr != nil {
			failures[key] = rerr
			continue
		}
		results[key] = result
	}

	out := map[string]any{"result": results, "result_error": failures}
	// The portal sends empty maps as empty arrays.
	if len(failures) == 0 {
		out["result_error"] = []any{}
	}
	if len(results) == 0 {
		out["result"] = []any{}
	}
	return out
}

func (p *Portal) dispatch(method string, params map[string]string) (any, *rest.Error) {
	p.record(method)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch method {
	case rest.MethodUserCurrent:
		return map[string]string{"ID": "1", "NAME": "Admin"}, nil

	case rest.MethodPlacementBind:
		b := Binding{
			Placement:   params["PLACEMENT"],
			Handler:     params["HANDLER"],
			Title:       params["TITLE"],
			Description: params["DESCRIPTION"],
		}
		if b.Placement == "" || b.Handler == "" {
			return nil, &rest.Error{Code: "ERROR_ARGUMENT", Description: "PLACEMENT and HANDLER are required"}
		}
		if e, ok := p.failures[b.Placement]; ok {
			return nil, e
		}
		p.bindings[bindingKey{b.Placement, b.Handler}] = b
		return true, nil

	case rest.MethodPlacementUnbind:
		placement := params["PLACEMENT"]
		if placement == "" {
			return nil, &rest.Error{Code: "ERROR_ARGUMENT", Description: "PLACEMENT is required"}
		}
		if e, ok := p.failures[placement]; ok {
			return nil, e
		}
		count := 0
		for k := range p.bindings {
			if k.placement != placement {
				continue
			}
			if h, ok := params["HANDLER"]; ok && h != k.handler {
				continue
			}
			delete(p.bindings, k)
			count++
		}
		return map[string]int{"count": count}, nil

	case rest.MethodPlacementGet:
		return p.sortedLocked(), nil

	default:
		return nil, &rest.Error{Code: "ERROR_METHOD_NOT_FOUND", Description: fmt.Sprintf("Method not found: %s", method)}
	}
}

func (p *Portal) record(method string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, method)
}

func (p *Portal) sortedLocked() []Binding {
	out := make([]Binding, 0, len(p.bindings))
	for _, b := range p.bindings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Placement != out[j].Placement {
			return out[i].Placement < out[j].Placement
		}
		return out[i].Handler < out[j].Handler
	})
	return out
}

func flatten(body map[string]any) map[string]string {
	out := make(map[string]string, len(body))
	for k, v := range body {
		if s, ok := v.(string); ok {
			out[k] = s
		} else if v != nil {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
