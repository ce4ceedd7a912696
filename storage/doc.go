// Package storage defines the backend capability contracts the token-issuance
// engine depends on, together with the domain records those contracts exchange.
// It supports various backend implementations including in-memory and Redis.
package storage
