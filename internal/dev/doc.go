// Package dev implements the development server.
//
// The server owns the three collaborators the transform pipeline talks
// to during serve: a module graph caching transformed and virtual
// modules, a websocket hub pushing hot style updates to browsers, and a
// polling watcher that triggers retransforms when style sources change.
//
// Module requests follow the bundler convention of mounting virtual
// module ids under /@id/, so generated import specifiers stay loadable
// by the browser without a bundling step.
package dev
