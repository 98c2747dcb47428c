// Package daemon owns the long-running vigil process: it enforces
// single-instance execution through a lock file, drives the agent
// lifecycle, and exposes the operations the IPC surface serves.
package daemon
