// Package api implements the REST and WebSocket surface for hamhd.
//
// This package provides:
//   - REST endpoints for bridge CRUD, lifecycle actions, device actions,
//     and runtime/pairing read-outs (spec §6)
//   - A WebSocket hub that pushes bridge runtime and device change
//     notifications as they are written to the Store (EXPANDED)
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// Bridge create and update write the BridgeConfig to the Store
// directly. Bridge delete and the lifecycle actions enqueue operations
// onto the Store's operation log; the dispatcher package drains that
// queue and performs the actual lifecycle work. Device actions call the
// upstream service API directly. The REST layer never drives a Matter runtime
// directly — lifecycle actions return 202 Accepted, and the caller
// polls GET /api/matter/operations or the runtime read-outs for
// completion.
//
// # Security
//
// Authentication of the local REST surface is an explicit non-goal —
// this server assumes it runs behind a trusted boundary (localhost, a
// reverse proxy, or a private network).
package api
