// Package domain defines the core business types for the newsletter engine:
// issues and their blocks, configurations, segments, generation jobs, and
// the typed workflow errors.
//
// Everything here is a pure value object shared by handlers, services, and
// repositories. The package imports nothing from the rest of internal/ and
// carries no database or HTTP concerns; struct tags, enums, and pure
// validation methods are the only behavior allowed.
package domain
