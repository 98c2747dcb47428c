// Package agent owns the client run-state and the task lifecycle. It
// runs a heartbeat loop that announces the client to the control plane,
// an acquisition loop that pulls at most one assignment at a time, and
// per-task executors that drive a viewer session through the watch
// state machine while journaling and reporting progress.
package agent
