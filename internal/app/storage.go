package app

import (
	"fmt"
	"slices"

	"github.com/pscheid92/todolists/internal/domain"
)

// SessionStorage wraps one session's list collection. Lookups are linear
// scans; collections are small and bounded by what fits in a session.
type SessionStorage struct {
	lists *domain.Collection
}

// NewSessionStorage wraps lists, which is mutated in place by every operation.
func NewSessionStorage(lists *domain.Collection) *SessionStorage {
	return &SessionStorage{lists: lists}
}

// AllLists returns the lists in insertion order.
func (s *SessionStorage) AllLists() []domain.List {
	return s.lists.Lists
}

// FindList returns the list with the given id. The pointer aliases the
// collection and is invalidated by the next list creation or deletion.
func (s *SessionStorage) FindList(id int) (*domain.List, bool) {
	i := slices.IndexFunc(s.lists.Lists, func(l domain.List) bool { return l.ID == id })
	if i < 0 {
		return nil, false
	}
	return &s.lists.Lists[i], true
}

// CreateNewList appends an empty list and returns its id.
func (s *SessionStorage) CreateNewList(name string) int {
	top := s.lists.LastListID
	for _, l := range s.lists.Lists {
		top = max(top, l.ID)
	}
	id := top + 1
	s.lists.LastListID = id

	s.lists.Lists = append(s.lists.Lists, domain.List{ID: id, Name: name, Todos: []domain.Todo{}})
	return id
}

// DeleteList removes the list with the given id. Unknown ids are ignored.
func (s *SessionStorage) DeleteList(id int) {
	s.lists.Lists = slices.DeleteFunc(s.lists.Lists, func(l domain.List) bool { return l.ID == id })
}

func (s *SessionStorage) UpdateListName(id int, name string) error {
	list, err := s.mustFindList(id)
	if err != nil {
		return err
	}
	list.Name = name
	return nil
}

// CreateNewTodo appends an incomplete todo to the list and returns its id.
// Todo ids are scoped to their list.
func (s *SessionStorage) CreateNewTodo(listID int, name string) (int, error) {
	list, err := s.mustFindList(listID)
	if err != nil {
		return 0, err
	}

	top := list.LastTodoID
	for _, t := range list.Todos {
		top = max(top, t.ID)
	}
	id := top + 1
	list.LastTodoID = id

	list.Todos = append(list.Todos, domain.Todo{ID: id, Name: name})
	return id, nil
}

// DeleteTodoFromList removes a todo. An unknown todo id is ignored; an unknown
// list id is not.
func (s *SessionStorage) DeleteTodoFromList(listID, todoID int) error {
	list, err := s.mustFindList(listID)
	if err != nil {
		return err
	}
	list.Todos = slices.DeleteFunc(list.Todos, func(t domain.Todo) bool { return t.ID == todoID })
	return nil
}

func (s *SessionStorage) UpdateTodoStatus(listID, todoID int, completed bool) error {
	list, err := s.mustFindList(listID)
	if err != nil {
		return err
	}

	i := slices.IndexFunc(list.Todos, func(t domain.Todo) bool { return t.ID == todoID })
	if i < 0 {
		return fmt.Errorf("todo %d in list %d: %w", todoID, listID, domain.ErrTodoNotFound)
	}
	list.Todos[i].Completed = completed
	return nil
}

func (s *SessionStorage) MarkAllTodosAsCompleted(listID int) error {
	list, err := s.mustFindList(listID)
	if err != nil {
		return err
	}
	for i := range list.Todos {
		list.Todos[i].Completed = true
	}
	return nil
}

func (s *SessionStorage) mustFindList(id int) (*domain.List, error) {
	list, ok := s.FindList(id)
	if !ok {
		return nil, fmt.Errorf("list %d: %w", id, domain.ErrListNotFound)
	}
	return list, nil
}
