// Field catalog handlers.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/facets/internal/sqlite"
	"github.com/mesh-intelligence/facets/pkg/types"
)

type createFieldRequest struct {
	Name   string            `json:"name"`
	Type   string            `json:"type"`
	Config types.FieldConfig `json:"config"`
}

func (s *Server) handleCreateField(c echo.Context) error {
	var req createFieldRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	field := &types.Field{
		CollectionID: collection(c),
		Name:         req.Name,
		Type:         req.Type,
		Config:       req.Config,
	}
	if _, err := s.store.CreateField(field); err != nil {
		return err
	}
	s.resolver.InvalidateAll()
	return c.JSON(http.StatusCreated, field)
}

type checkDuplicateRequest struct {
	Name string `json:"name"`
}

type checkDuplicateResponse struct {
	Exists bool         `json:"exists"`
	Field  *types.Field `json:"field,omitempty"`
}

func (s *Server) handleCheckDuplicate(c echo.Context) error {
	var req checkDuplicateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Name == "" {
		return types.NewValidationError("name must not be empty")
	}

	field, err := s.store.CheckDuplicateName(collection(c), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, checkDuplicateResponse{
		Exists: field != nil,
		Field:  field,
	})
}

func (s *Server) handleListFields(c echo.Context) error {
	fields, err := s.store.ListFields(collection(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fields)
}

func (s *Server) handleGetField(c echo.Context) error {
	field, err := s.store.GetField(collection(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, field)
}

type updateFieldRequest struct {
	Name   *string            `json:"name"`
	Type   *string            `json:"type"`
	Config *types.FieldConfig `json:"config"`
}

func (s *Server) handleUpdateField(c echo.Context) error {
	var req updateFieldRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	field, err := s.store.UpdateField(collection(c), c.Param("id"), sqlite.FieldUpdate{
		Name:   req.Name,
		Type:   req.Type,
		Config: req.Config,
	})
	if err != nil {
		return err
	}
	s.resolver.InvalidateAll()
	return c.JSON(http.StatusOK, field)
}

type deleteResponse struct {
	Deleted string            `json:"deleted"`
	Stats   types.DeleteStats `json:"stats"`
}

func (s *Server) handleDeleteField(c echo.Context) error {
	id := c.Param("id")
	stats, err := s.store.DeleteField(collection(c), id)
	if err != nil {
		return err
	}
	s.resolver.InvalidateAll()
	return c.JSON(http.StatusOK, deleteResponse{Deleted: id, Stats: stats})
}
