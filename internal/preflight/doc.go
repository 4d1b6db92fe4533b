// Package preflight runs startup checks shared by the daemon and the status
// command: directory access, staging free space, external binaries, and
// OpenAI API reachability.
package preflight
