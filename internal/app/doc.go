// Package app provides the application layer between HTTP handlers and the
// session-scoped list collection.
//
// SessionStorage performs list/todo CRUD and id assignment without enforcing
// business rules; ValidateListName and ValidateTodoName enforce them and must be
// called before mutating.
package app
