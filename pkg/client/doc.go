// Package client implements the typed REST client for the advisory API used
// by the officer console and krishictl. It covers login, dashboard,
// escalations, analytics and profile operations and reports every 401 to an
// optional handler so callers can drop the session the token belongs to.
package client
