// Package domain defines the core domain types and interfaces.
//
// List and Todo model one browser session's todo state; Collection is the
// session-scoped root that the storage adapter mutates. No implementation code
// beyond small derived accessors - just contracts.
package domain
