// Package console renders the officer console pages and htmx fragments.
//
// Every officer route runs behind RequireOfficer, which resolves the session
// cookie into one of three states. Authenticated requests get a per-session
// backend client and cache scope; a 401 from the advisory API through that
// client ends the session and sends the browser to the login page.
//
// Pages are full documents built from templates/layout.html. Fragments
// (dashboard counters, recent cases, table rows, the respond dialog) are
// rendered alone and always refetch from the backend. Events for the browser
// travel in the HX-Trigger header: toast, closeDialog and escalationsChanged.
package console
