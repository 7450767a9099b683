// Package main hosts the shotline CLI entrypoint and command graph.
//
// The Cobra-based command tree loads the project configuration once, then
// hands it to the internal packages: batch runs go through the scheduler,
// review decisions and manual patches take the board lock directly, and the
// serve command exposes the same operations over HTTP.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
