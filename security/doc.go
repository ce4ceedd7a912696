// Package security provides the default token generation strategy and the
// injectable clock the engine uses for expiry checks.
package security
