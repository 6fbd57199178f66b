package domain

// Todo is a named item with a completion flag, scoped to one list.
type Todo struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// List is a named, ordered collection of todos.
type List struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Todos []Todo `json:"todos"`

	// LastTodoID is the highest todo id ever issued in this list.
	LastTodoID int `json:"last_todo_id,omitempty"`
}

func (l List) TodosCount() int {
	return len(l.Todos)
}

func (l List) RemainingTodosCount() int {
	n := 0
	for _, t := range l.Todos {
		if !t.Completed {
			n++
		}
	}
	return n
}

// Completed reports whether the list has at least one todo and none remaining.
func (l List) Completed() bool {
	return l.TodosCount() > 0 && l.RemainingTodosCount() == 0
}

// Collection is the list collection owned by exactly one session.
type Collection struct {
	Lists []List `json:"lists"`

	// LastListID is the highest list id ever issued in this collection.
	LastListID int `json:"last_list_id,omitempty"`
}
