// Package cli parses the germitrack command line into an Options struct and
// overlays explicitly set flags onto the file configuration, so the
// precedence is flags over config file over built-in defaults.
package cli
