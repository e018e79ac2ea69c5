// Package auth signs krishictl in to the advisory API and keeps the bearer
// token in the OS keychain or a private file.
package auth
