// Package services holds the error taxonomy and context plumbing
// shared by every component.
package services
