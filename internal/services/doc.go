// Package services sits between the HTTP handlers and the seasonal
// adjustment pipeline.
//
// Handlers stay thin: they decode requests, call a service and render the
// result. Services apply server policy on top of seasonal.Adjuster, such as
// default table ids and whether callers may choose an output directory, and
// report readiness of the pieces an adjustment run depends on.
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → seasonal.Adjuster
//	                                                                 ↓
//	HTTP Response ← Handler ← Service ←──────────────── x13ashtml tables
package services
