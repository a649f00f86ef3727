//go:build testing

package build

// Release is set to 'testing' when built with the 'testing' build tag. Test
// binaries suppress the stack trace that Critical/Severe print elsewhere, to
// keep test output readable.
var Release = "testing"

// DEBUG is true for testing builds so that invariant violations fail tests
// loudly instead of merely logging.
var DEBUG = true
