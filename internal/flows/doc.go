// Package flows contains the orchestration for each account operation:
// credential check, email verification and password reset.
//
// Each flow function (RunAuthenticate, RunVerifyEmail, RunConfirmPasswordReset,
// etc.) accepts a typed dependency struct and returns results without side
// effects beyond those dependencies. The Engine builds the dependency struct
// per call and stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user store, password hasher,
// limiters, mailer, audit dispatcher, and metrics. They do NOT own any of
// these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authcore (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency closures.
package flows
