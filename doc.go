// Package auth implements cookie based sessions for the admin back office:
// signup, login, single use refresh rotation and logout over a bun backed
// account store.
//
// Credentials:
//   - Access and refresh tokens are HS256 JWTs signed with separate secrets
//     and tagged with their kind, so one can never stand in for the other.
//   - Only a bcrypt fingerprint of the current refresh token is stored. A
//     refresh consumes it with a compare and swap, which means a replayed or
//     concurrently redeemed token fails. Logging in again revokes the previous
//     refresh token.
//
// HTTP:
//   - AuthController mounts the session endpoints and sets the access,
//     refresh and CSRF cookies. The access guard in middleware/jwtware reads
//     the RouteTable to decide which routes are public and runs the double
//     submit CSRF check on mutating requests.
//
// Activity sinks:
//   - ActivitySink receives signup, login, refresh and logout outcomes. Sinks
//     run best effort: errors are logged and never fail the operation.
package auth
