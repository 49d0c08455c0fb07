// Package rest is a client for the CRM portal's REST RPC API.
//
// Every method is invoked as POST {endpoint}{method}.json with JSON params.
// The endpoint is either an incoming-webhook base URL, which embeds its own
// credentials, or https://<domain>/rest/ combined with an OAuth token source
// whose access token is sent as the auth query parameter.
//
// Batches go through the batch method: each command is flattened into a
// "method?query" string keyed by a caller-chosen key, and the portal answers
// with one result or one error per key. Items never abort each other.
package rest
