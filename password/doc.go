// Package password hashes and verifies account passwords.
//
// # Output format
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Hashes imported from the previous deployment are bcrypt (`$2a$`, `$2b$`,
// `$2y$`). [Manager.Verify] accepts both; [Manager.NeedsRehash] reports true
// for every bcrypt hash and for Argon2id hashes produced with weaker
// parameters, so the caller can re-hash after the next successful login.
//
// The encoded hash doubles as the per-user state snapshot bound into
// password reset capabilities, so any re-hash invalidates outstanding
// reset links. That is intended.
//
// Password policy (minimum length, confirmation) lives in the engine.
package password
