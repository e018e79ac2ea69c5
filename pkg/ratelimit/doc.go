// Package ratelimit provides keyed token-bucket rate limiting as gin
// middleware. The console limits login attempts per client IP and page
// traffic per officer.
package ratelimit
