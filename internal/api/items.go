// Item handlers: the resolved projection read path and the batched value
// write path, plus the minimal item and label-application surface the
// surrounding application uses.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/facets/pkg/types"
)

type createItemRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (s *Server) handleCreateItem(c echo.Context) error {
	var req createItemRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Title == "" {
		return types.NewValidationError("item title must not be empty")
	}

	item := &types.Item{
		CollectionID: collection(c),
		Title:        req.Title,
		URL:          req.URL,
	}
	if _, err := s.store.CreateItem(item); err != nil {
		return err
	}
	item.LabelIDs = []string{}
	return c.JSON(http.StatusCreated, item)
}

// handleGetItem returns the item with its resolved field list: every field
// reachable through the item's labels exactly once, with stored values
// joined in and nulls for fields that have none.
func (s *Server) handleGetItem(c echo.Context) error {
	proj, err := s.resolver.Resolve(collection(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, proj)
}

// handleUpdateItemFields applies a batched, all-or-nothing value write and
// returns the new canonical values so the client can reconcile its
// optimistic state.
func (s *Server) handleUpdateItemFields(c echo.Context) error {
	var updates []types.ValueUpdate
	if err := c.Bind(&updates); err != nil {
		return err
	}

	values, err := s.writer.BatchUpdate(collection(c), c.Param("id"), updates)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, values)
}

func (s *Server) handleApplyLabel(c echo.Context) error {
	if err := s.store.ApplyLabel(collection(c), c.Param("id"), c.Param("labelId")); err != nil {
		return err
	}
	s.resolver.InvalidateItem(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRemoveItemLabel(c echo.Context) error {
	if err := s.store.RemoveLabel(collection(c), c.Param("id"), c.Param("labelId")); err != nil {
		return err
	}
	s.resolver.InvalidateItem(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}
