// Package widget turns the portal's render request into a read-only
// PlacementInfo and hands it to a Renderer.
//
// The portal POSTs to the handler URL registered by placement.bind with the
// placement code, a JSON-encoded options object and the caller's portal
// details. Rendering itself is pluggable; TemplateRenderer is the HTML
// implementation served by placekit serve.
package widget
