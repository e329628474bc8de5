// Package dedupe remembers recently seen idempotency keys for a bounded time
// so a replayed request can be recognised and refused.
package dedupe
