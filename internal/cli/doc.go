// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags and the optional HCL configuration file into processor
// options and drives a single run.
package cli
