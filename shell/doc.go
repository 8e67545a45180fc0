// Package shell contains the service-side glue around the booking core:
// retry logic for transient conflicts and the zerolog adapter for the
// engine's logging ports.
package shell
