// Package preload runs the request pipeline behind POST /preload.
//
// Each request moves through Received, QuotaCheck, Downloading, Transcribing
// and Translating before ending in Completed or Failed. The quota check
// compares today's usage plus the caller's estimated duration with the daily
// limit; an estimate of zero lets the request through, and real usage then
// accrues per translated segment. A segment whose translation fails keeps its
// source text. The downloaded audio file is removed on every exit path.
package preload
