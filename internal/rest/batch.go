package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// batchPayload is the result of the batch method. Either map may arrive as
// an empty JSON array when it has no entries.
type batchPayload struct {
	Result      json.RawMessage `json:"result"`
	ResultError json.RawMessage `json:"result_error"`
}

// CallBatch submits up to MaxBatchSize commands with halt disabled, so a
// failing item never stops the others.
func (c *Client) CallBatch(ctx context.Context, cmds []Command) (BatchResult, error) {
	if len(cmds) == 0 {
		return BatchResult{}, nil
	}
	if len(cmds) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d commands exceeds the limit of %d", len(cmds), MaxBatchSize)
	}

	cmdMap := make(map[string]string, len(cmds))
	for _, cmd := range cmds {
		if cmd.Key == "" {
			return nil, fmt.Errorf("batch command %s has no key", cmd.Method)
		}
		if _, dup := cmdMap[cmd.Key]; dup {
			return nil, fmt.Errorf("duplicate batch key %q", cmd.Key)
		}
		cmdMap[cmd.Key] = cmd.Query()
	}

	resp, err := c.do(ctx, MethodBatch, map[string]any{
		"halt": 0,
		"cmd":  cmdMap,
	})
	if err != nil {
		return nil, err
	}
	return DecodeBatch(resp.Result)
}

// DecodeBatch converts the result of the batch method into a BatchResult.
// A key present in result_error is a failure even if it also has a result.
func DecodeBatch(raw json.RawMessage) (BatchResult, error) {
	var payload batchPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parsing batch result: %w", err)
	}

	results, err := decodeKeyed(payload.Result)
	if err != nil {
		return nil, fmt.Errorf("parsing batch results: %w", err)
	}
	failures, err := decodeKeyed(payload.ResultError)
	if err != nil {
		return nil, fmt.Errorf("parsing batch errors: %w", err)
	}

	out := make(BatchResult, len(results)+len(failures))
	for key, data := range results {
		out[key] = ItemResult{data: data}
	}
	for key, e := range failures {
		out[key] = ItemResult{data: results[key], err: decodeItemError(e)}
	}
	return out, nil
}

// decodeKeyed reads a JSON object, or a JSON array indexed by position.
func decodeKeyed(raw json.RawMessage) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		m := make(map[string]json.RawMessage, len(list))
		for i, item := range list {
			m[strconv.Itoa(i)] = item
		}
		return m, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeItemError(raw json.RawMessage) *Error {
	var e Error
	if err := json.Unmarshal(raw, &e); err == nil && (e.Code != "" || e.Description != "") {
		return &e
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return &Error{Code: s}
	}
	return &Error{Description: string(raw)}
}
