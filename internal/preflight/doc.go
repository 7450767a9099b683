// Package preflight provides readiness checks for the project files,
// directories, and providers shotline depends on.
//
// The CLI "shotline preflight" command runs RunAll and prints each result;
// "shotline status" and the HTTP status endpoint use ProbeBoard for a quick
// snapshot of the board without touching the network.
//
// Provider checks are skipped with a failing result when the matching API key
// is absent, so a missing key is reported instead of surfacing later as a
// batch-wide configuration error.
package preflight
