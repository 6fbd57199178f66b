package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/todolists/internal/adapter/metrics"
	"github.com/pscheid92/todolists/internal/app"
	"github.com/pscheid92/todolists/internal/domain"
	apperrors "github.com/pscheid92/todolists/internal/platform/errors"
)

const (
	msgListNotFound = "That list does not exist."
	msgListCreated  = "The list has been created."
	msgListRenamed  = "The list name has been updated."
	msgListDeleted  = "The list has been deleted."
	msgAllCompleted = "All todos have been completed."
)

func (s *Server) registerListRoutes(limit, csrf echo.MiddlewareFunc) {
	s.echo.GET("/lists", s.handleIndex, csrf, s.loadSession)
	s.echo.GET("/lists/new", s.handleNewList, csrf, s.loadSession)
	s.echo.POST("/lists", s.handleCreateList, limit, csrf, s.loadSession)

	s.echo.GET("/lists/:list_id", s.handleShowList, csrf, s.loadSession, s.requireList)
	s.echo.GET("/lists/:list_id/edit", s.handleEditList, csrf, s.loadSession, s.requireList)
	s.echo.POST("/lists/:list_id", s.handleRenameList, limit, csrf, s.loadSession, s.requireList)
	s.echo.POST("/lists/:list_id/delete", s.handleDeleteList, limit, csrf, s.loadSession, s.requireList)
	s.echo.POST("/lists/:list_id/complete_all", s.handleCompleteAll, limit, csrf, s.loadSession, s.requireList)
}

// requireList resolves :list_id against the session. Unknown or malformed
// ids never reach the handler: script callers get a bare 404, browsers are
// sent back to the index with an error flash.
func (s *Server) requireList(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		st, err := stateFrom(c)
		if err != nil {
			return err
		}

		var list *domain.List
		id, ok := parseID(c.Param("list_id"))
		if ok {
			list, ok = st.storage.FindList(id)
		}
		if !ok {
			slog.InfoContext(c.Request().Context(), "List not found", "list_id", c.Param("list_id"))
			if isAsync(c) {
				return c.NoContent(http.StatusNotFound)
			}
			st.setFlash(sessionKeyError, msgListNotFound)
			return s.redirect(c, st, "/lists")
		}

		c.Set(contextKeyList, list)
		return next(c)
	}
}

func listFrom(c echo.Context) (*domain.List, error) {
	list, ok := c.Get(contextKeyList).(*domain.List)
	if !ok {
		return nil, apperrors.InternalError("list not resolved", nil)
	}
	return list, nil
}

func listPath(id int) string {
	return "/lists/" + strconv.Itoa(id)
}

func (s *Server) handleRoot(c echo.Context) error {
	if err := c.Redirect(http.StatusFound, "/lists"); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleIndex(c echo.Context) error {
	st, err := stateFrom(c)
	if err != nil {
		return err
	}
	return s.renderTemplate(c, st, "lists.html", map[string]any{
		"Lists": sortLists(st.storage.AllLists()),
	})
}

func (s *Server) handleNewList(c echo.Context) error {
	st, err := stateFrom(c)
	if err != nil {
		return err
	}
	return s.renderTemplate(c, st, "new_list.html", map[string]any{
		"ListName": "",
	})
}

func (s *Server) handleCreateList(c echo.Context) error {
	st, err := stateFrom(c)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(c.FormValue("list_name"))
	if err := app.ValidateListName(st.storage, name); err != nil {
		return s.rejectInput(c, st, "create_list", err, "new_list.html", map[string]any{
			"ListName": name,
		})
	}

	id := st.storage.CreateNewList(name)
	slog.InfoContext(c.Request().Context(), "List created", "list_id", id)
	s.listMetrics.Record("create_list", metrics.OutcomeSuccess)

	st.setFlash(sessionKeySuccess, msgListCreated)
	return s.redirect(c, st, "/lists")
}

func (s *Server) handleShowList(c echo.Context) error {
	st, err := stateFrom(c)
	if err != nil {
		return err
	}
	list, err := listFrom(c)
	if err != nil {
		return err
	}
	return s.renderTemplate(c, st, "list.html", map[string]any{
		"List":  list,
		"Todos": sortTodos(list.Todos),
		"Todo":  "",
	})
}

func (s *Server) handleEditList(c echo.Context) error {
	st, err := stateFrom(c)
	if err != nil {
		return err
	}
	list, err := listFrom(c)
	if err != nil {
		return err
	}
	return s.renderTemplate(c, st, "edit_list.html", map[string]any{
		"List":     list,
		"ListName": list.Name,
	})
}

func (s *Server) handleRenameList(c echo.Context) error {
	st, err := stateFrom(c)
	if err != nil {
		return err
	}
	list, err := listFrom(c)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(c.FormValue("list_name"))
	if err := app.ValidateListName(st.storage, name); err != nil {
		return s.rejectInput(c, st, "rename_list", err, "edit_list.html", map[string]any{
			"List":     list,
			"ListName": name,
		})
	}

	if err := st.storage.UpdateListName(list.ID, name); err != nil {
		return apperrors.InternalError("failed to rename list", err).WithField("list_id", list.ID)
	}
	slog.InfoContext(c.Request().Context(), "List renamed", "list_id", list.ID)
	s.listMetrics.Record("rename_list", metrics.OutcomeSuccess)

	st.setFlash(sessionKeySuccess, msgListRenamed)
	return s.redirect(c, st, listPath(list.ID))
}

func (s *Server) handleDeleteList(c echo.Context) error {
	st, err := stateFrom(c)
	if err != nil {
		return err
	}
	list, err := listFrom(c)
	if err != nil {
		return err
	}

	// list aliases the collection and is stale once the list is gone.
	id := list.ID
	st.storage.DeleteList(id)
	slog.InfoContext(c.Request().Context(), "List deleted", "list_id", id)
	s.listMetrics.Record("delete_list", metrics.OutcomeSuccess)

	if isAsync(c) {
		// The script navigates to the returned path itself.
		st.dirty = true
		if err := s.saveState(c, st); err != nil {
			return err
		}
		return c.String(http.StatusOK, "/lists")
	}

	st.setFlash(sessionKeySuccess, msgListDeleted)
	return s.redirect(c, st, "/lists")
}

func (s *Server) handleCompleteAll(c echo.Context) error {
	st, err := stateFrom(c)
	if err != nil {
		return err
	}
	list, err := listFrom(c)
	if err != nil {
		return err
	}

	if err := st.storage.MarkAllTodosAsCompleted(list.ID); err != nil {
		return apperrors.InternalError("failed to complete todos", err).WithField("list_id", list.ID)
	}
	slog.InfoContext(c.Request().Context(), "All todos completed", "list_id", list.ID)
	s.listMetrics.Record("complete_all", metrics.OutcomeSuccess)

	st.setFlash(sessionKeySuccess, msgAllCompleted)
	return s.redirect(c, st, listPath(list.ID))
}

// rejectInput re-renders a form with the validation message flashed and the
// submitted value kept. Anything other than a validation error is returned
// as is.
func (s *Server) rejectInput(c echo.Context, st *requestState, operation string, err error, page string, data map[string]any) error {
	if !apperrors.IsType(err, apperrors.TypeValidation) {
		return err
	}

	structuredErr := apperrors.AsStructuredError(err)
	logError(c, structuredErr)
	s.listMetrics.Record(operation, metrics.OutcomeRejected)

	st.setFlash(sessionKeyError, structuredErr.Message)
	return s.renderTemplate(c, st, page, data)
}

// sortLists orders complete lists after incomplete ones, keeping creation
// order within each group.
func sortLists(lists []domain.List) []domain.List {
	sorted := slices.Clone(lists)
	slices.SortStableFunc(sorted, func(a, b domain.List) int {
		return compareCompleted(a.Completed(), b.Completed())
	})
	return sorted
}

func sortTodos(todos []domain.Todo) []domain.Todo {
	sorted := slices.Clone(todos)
	slices.SortStableFunc(sorted, func(a, b domain.Todo) int {
		return compareCompleted(a.Completed, b.Completed)
	})
	return sorted
}

func compareCompleted(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}
