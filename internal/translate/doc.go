// Package translate is the quota-aware translation gateway.
//
// Translate normalizes loosely shaped input to one string, refuses work once
// the user's daily usage has reached the limit, sizes a token budget from the
// input length, calls the primary backend and then the optional fallback, and
// records usage in the ledger only after a translation succeeded.
package translate
