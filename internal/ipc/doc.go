// Package ipc exposes daemon control over JSON-RPC on a Unix domain
// socket. The CLI is the only intended client; the wire types here are
// the contract between a running daemon and the command surface.
package ipc
