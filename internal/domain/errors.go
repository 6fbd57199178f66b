package domain

import "errors"

var (
	ErrListNotFound = errors.New("list not found")
	ErrTodoNotFound = errors.New("todo not found")
)
