//go:build !dev && !testing

package build

// Release is set to 'standard' for the default build. Use the 'dev' or
// 'testing' build tags to switch to the other release modes.
var Release = "standard"

// DEBUG is set to false for the standard release; Critical and Severe will
// print to stderr but will not panic.
var DEBUG = false
