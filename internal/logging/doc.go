// Package logging provides opt-in file-based logging with rotation for the
// ARO compiler and its serve daemon. When --debug is set, comprehensive
// logs are written to ~/.aro/logs/ for troubleshooting a compile or serve
// run; by default logging is minimal and goes to stderr only.
package logging
