// Package v1 contains the wire types of the officer advisory API consumed by
// the console and krishictl: escalations, dashboard counters, analytics and
// the officer profile.
package v1
