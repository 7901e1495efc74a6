// Package server is a demo grid server. It serves a generated product list
// over websocket: rows on request, per-session selection and editor
// handling, shared sort order, and optional churn of random inserts and
// removals.
package server
