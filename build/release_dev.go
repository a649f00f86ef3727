//go:build dev

package build

// Release is set to 'dev' when built with the 'dev' build tag.
var Release = "dev"

// DEBUG is true for dev builds so that Critical panics instead of merely
// logging, surfacing invariant violations immediately during development.
var DEBUG = true
