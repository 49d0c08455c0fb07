package rest

import (
	"context"
	"encoding/json"
	"fmt"
)

// Method names used by placekit.
const (
	MethodBatch           = "batch"
	MethodUserCurrent     = "user.current"
	MethodPlacementBind   = "placement.bind"
	MethodPlacementUnbind = "placement.unbind"
	MethodPlacementGet    = "placement.get"
)

// MaxBatchSize is the largest number of commands the portal accepts in one batch.
const MaxBatchSize = 50

// Params are the named arguments of one REST method call.
type Params map[string]any

// Caller is the RPC surface of the portal.
type Caller interface {
	// CallMethod invokes one method and returns its decoded envelope.
	CallMethod(ctx context.Context, method string, params Params) (*Response, error)
	// CallBatch submits commands in one round trip. The returned map holds an
	// entry for every key the portal answered; per-item failures are carried
	// in ItemResult, not in the returned error.
	CallBatch(ctx context.Context, cmds []Command) (BatchResult, error)
}

// Command is one item of a batch.
type Command struct {
	Key    string
	Method string
	Params Params
}

// Query renders the command the way the batch method expects it:
// "method?KEY=value&...".
func (c Command) Query() string {
	q := EncodeQuery(c.Params)
	if q == "" {
		return c.Method
	}
	return c.Method + "?" + q
}

// Response is the envelope of a successful single call.
type Response struct {
	Result json.RawMessage `json:"result"`
	Next   int             `json:"next,omitempty"`
	Total  int             `json:"total,omitempty"`
}

// Decode unmarshals the result payload into v.
func (r *Response) Decode(v any) error {
	if len(r.Result) == 0 {
		return fmt.Errorf("empty result")
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

// ItemResult is the outcome of one batch item.
type ItemResult struct {
	data json.RawMessage
	err  *Error
}

// NewItemResult builds an item outcome. A non-nil err marks the item failed.
func NewItemResult(data json.RawMessage, err *Error) ItemResult {
	return ItemResult{data: data, err: err}
}

// Err returns the item's error descriptor, or nil on success.
func (r ItemResult) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// Data returns the item's success payload.
func (r ItemResult) Data() json.RawMessage {
	return r.data
}

// BatchResult maps batch keys to item outcomes.
type BatchResult map[string]ItemResult
