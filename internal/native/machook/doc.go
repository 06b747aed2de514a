// Package machook is the macOS hook backend, built on robotn/gohook.
//
// gohook reports events after the fact, so this backend observes only:
// rules run and state is tracked, but Block cannot suppress anything and
// sending input is unsupported. The process needs the Accessibility
// permission.
package machook
