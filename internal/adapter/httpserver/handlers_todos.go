package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/todolists/internal/adapter/metrics"
	"github.com/pscheid92/todolists/internal/app"
	"github.com/pscheid92/todolists/internal/domain"
	apperrors "github.com/pscheid92/todolists/internal/platform/errors"
)

const (
	msgTodoAdded    = "The todo has been added."
	msgTodoDeleted  = "The todo has been deleted."
	msgTodoUpdated  = "The list has been updated."
	msgTodoNotFound = "That todo does not exist."
)

func (s *Server) registerTodoRoutes(limit, csrf echo.MiddlewareFunc) {
	s.echo.POST("/lists/:list_id/todos", s.handleAddTodo, limit, csrf, s.loadSession, s.requireList)
	s.echo.POST("/lists/:list_id/todos/:todo_id", s.handleToggleTodo, limit, csrf, s.loadSession, s.requireList)
	s.echo.POST("/lists/:list_id/todos/:todo_id/delete", s.handleDeleteTodo, limit, csrf, s.loadSession, s.requireList)
}

func (s *Server) handleAddTodo(c echo.Context) error {
	st, err := stateFrom(c)
	if err != nil {
		return err
	}
	list, err := listFrom(c)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(c.FormValue("todo"))
	if err := app.ValidateTodoName(name); err != nil {
		return s.rejectInput(c, st, "add_todo", err, "list.html", map[string]any{
			"List":  list,
			"Todos": sortTodos(list.Todos),
			"Todo":  name,
		})
	}

	id, err := st.storage.CreateNewTodo(list.ID, name)
	if err != nil {
		return apperrors.InternalError("failed to add todo", err).WithField("list_id", list.ID)
	}
	slog.InfoContext(c.Request().Context(), "Todo added", "list_id", list.ID, "todo_id", id)
	s.listMetrics.Record("add_todo", metrics.OutcomeSuccess)

	st.setFlash(sessionKeySuccess, msgTodoAdded)
	return s.redirect(c, st, listPath(list.ID))
}

// handleDeleteTodo is idempotent on the todo id: deleting a todo that is
// already gone reports success.
func (s *Server) handleDeleteTodo(c echo.Context) error {
	st, err := stateFrom(c)
	if err != nil {
		return err
	}
	list, err := listFrom(c)
	if err != nil {
		return err
	}

	if todoID, ok := parseID(c.Param("todo_id")); ok {
		if err := st.storage.DeleteTodoFromList(list.ID, todoID); err != nil {
			return apperrors.InternalError("failed to delete todo", err).WithField("list_id", list.ID)
		}
		slog.InfoContext(c.Request().Context(), "Todo deleted", "list_id", list.ID, "todo_id", todoID)
	}
	s.listMetrics.Record("delete_todo", metrics.OutcomeSuccess)

	if isAsync(c) {
		st.dirty = true
		if err := s.saveState(c, st); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}

	st.setFlash(sessionKeySuccess, msgTodoDeleted)
	return s.redirect(c, st, listPath(list.ID))
}

func (s *Server) handleToggleTodo(c echo.Context) error {
	st, err := stateFrom(c)
	if err != nil {
		return err
	}
	list, err := listFrom(c)
	if err != nil {
		return err
	}

	completed := c.FormValue("completed") == "true"

	todoID, ok := parseID(c.Param("todo_id"))
	if ok {
		err = st.storage.UpdateTodoStatus(list.ID, todoID, completed)
	}
	switch {
	case !ok || errors.Is(err, domain.ErrTodoNotFound):
		slog.InfoContext(c.Request().Context(), "Todo not found", "list_id", list.ID, "todo_id", c.Param("todo_id"))
		s.listMetrics.Record("toggle_todo", metrics.OutcomeNotFound)
		st.setFlash(sessionKeyError, msgTodoNotFound)
		return s.redirect(c, st, listPath(list.ID))
	case err != nil:
		return apperrors.InternalError("failed to update todo", err).WithField("list_id", list.ID)
	}

	slog.InfoContext(c.Request().Context(), "Todo updated", "list_id", list.ID, "todo_id", todoID, "completed", completed)
	s.listMetrics.Record("toggle_todo", metrics.OutcomeSuccess)

	st.setFlash(sessionKeySuccess, msgTodoUpdated)
	return s.redirect(c, st, listPath(list.ID))
}
