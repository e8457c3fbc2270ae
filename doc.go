// Package users implements a user-account service: credential login,
// token issuance and verification, a read-through session cache, and the
// account CRUD surface behind it.
//
// Tokens and revocation:
//   - Tokens are HS256 JWTs carrying user_id, token_id, and issued_at.
//     They have no embedded expiry; the middleware enforces a validity
//     window that can change at runtime, so issued tokens shrink or grow
//     their lifetime with configuration.
//   - Every account carries a token_id. Revocation rotates it, which
//     kills all previously issued tokens at once. Logging in never
//     rotates it, so concurrent sessions coexist.
//
// Session cache:
//   - Service is the consistency choke point: reads go through the cache
//     (UserCache, memory or Redis backed) and every mutation invalidates
//     the entry after the store write, before the call returns. A cached
//     record is at most TTL-stale and never survives a write.
//
// Bootstrap:
//   - AdminBootstrap guarantees an administrator account at startup,
//     retrying until the store is reachable. Existing accounts are left
//     untouched, password hash included.
package users
