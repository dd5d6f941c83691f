// Package preflight provides readiness checks for the external services
// and filesystem paths that episode generation depends on.
//
// These checks run in two contexts:
//   - The daemon runs the filesystem and binary checks at startup and
//     logs failures before workers begin claiming jobs.
//   - The CLI "gistcast status" command uses the individual check
//     functions to display provider and filesystem health.
//
// Checks are gated by configuration: features left unconfigured are
// reported as disabled rather than failed.
package preflight
