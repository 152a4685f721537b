// Command farsisub is the operator CLI for the farsisub companion server.
//
// It runs the server in the foreground (serve), inspects and resets the
// per-user usage ledger (usage show, usage reset), lists the download audit
// (downloads), checks external dependencies (deps), queries a running server
// (status), and manages the TOML configuration (config init, validate, show).
package main
