package app

import (
	"unicode/utf8"

	"github.com/pscheid92/todolists/internal/domain"
	apperrors "github.com/pscheid92/todolists/internal/platform/errors"
)

const (
	minNameLength = 1
	maxNameLength = 100
)

// Validation messages are shown to users verbatim.
const (
	MsgListNameLength = "The list name must be between 1 and 100 characters."
	MsgListNameTaken  = "List name must be unique."
	MsgTodoNameLength = "Todo name must be between 1 and 100 characters."
)

// ListReader is the read side of SessionStorage needed for uniqueness checks.
type ListReader interface {
	AllLists() []domain.List
}

// ValidateListName checks length in characters, then case-sensitive uniqueness
// against every existing list (including the list being renamed).
func ValidateListName(lists ListReader, name string) error {
	if !validNameLength(name) {
		return apperrors.ValidationError(MsgListNameLength).WithField("list_name", name)
	}
	for _, l := range lists.AllLists() {
		if l.Name == name {
			return apperrors.ValidationError(MsgListNameTaken).
				WithField("list_name", name).
				WithField("list_id", l.ID)
		}
	}
	return nil
}

// ValidateTodoName checks length only; todo names need not be unique.
func ValidateTodoName(name string) error {
	if !validNameLength(name) {
		return apperrors.ValidationError(MsgTodoNameLength).WithField("todo", name)
	}
	return nil
}

func validNameLength(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= minNameLength && n <= maxNameLength
}
