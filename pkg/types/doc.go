// Package types defines the Store and Table interfaces, the Record and Patch
// value types, configuration, and the standard errors for the Tracker Hub
// entity store.
package types
