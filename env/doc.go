// Package env provides the isolation gateway backends for envexec.
//
// For linux, the default backend forks the program with go-sandbox forkexec
// under POSIX rlimits and an optional seccomp filter, and a trusted backend
// is available for development which only enforces the wall clock.
//
// Other platforms are not supported.
package env
