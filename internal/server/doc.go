// Package server is the HTTP side of the app: the portal opens the install
// page once when the app is installed and the widget page every time a
// bound placement is displayed.
//
// Routes:
//
//	GET|POST /<entry file>   bind the manifest placements, then signal installFinish
//	GET|POST /<widget file>  render the widget for the posted PlacementInfo
//	GET      /healthz        liveness
//	GET      /metrics        Prometheus metrics
package server
