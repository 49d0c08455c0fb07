// Package placement installs and removes the widget's placement bindings on
// the portal.
//
// Install derives the handler URL from the app's entry page URL, sends one
// placement.bind per declared placement in a single batch (keys
// placement_bind_<index>), and reconciles each key independently. Binding is
// an upsert on the portal keyed by (PLACEMENT, HANDLER), so repeating an
// install re-asserts the same bindings.
//
// Remove lists current bindings with placement.get, filters them with a
// Criterion and issues one placement.unbind per match, concurrently. Each
// unbind echoes the handler string the portal returned for that binding.
//
// Neither path retries. Per-item failures are logged and reported in a
// Report; only handshake and transport failures are returned as errors.
package placement
