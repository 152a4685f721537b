// Package preflight provides readiness checks for the external tools,
// services and filesystem paths farsisub depends on.
//
// The daemon runs RunAll at startup and logs failures as warnings; a failed
// check does not stop the server because the extension may only need cookie
// upload or health checks while a binary is being installed. The CLI "deps"
// and "status" commands render the same results.
package preflight
