// Package component manages the lifecycle of the parts of a crudkit tool.
//
// A Registry starts components in registration order, stops the started
// ones in reverse with a deadline each, and aggregates their health into an
// observability.ServiceHealth. BaseLazyComponent helps components that
// build their resources in Start.
package component
