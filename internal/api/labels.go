// Label handlers. Label CRUD proper belongs to the surrounding application;
// creation is exposed here for it and for end-to-end tests, while the PUT
// route manages only the schema binding.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/facets/pkg/types"
)

type createLabelRequest struct {
	Name     string  `json:"name"`
	SchemaID *string `json:"schema_id"`
}

func (s *Server) handleCreateLabel(c echo.Context) error {
	var req createLabelRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Name == "" {
		return types.NewValidationError("label name must not be empty")
	}
	if req.SchemaID != nil {
		if _, err := s.store.GetSchema(collection(c), *req.SchemaID); err != nil {
			return err
		}
	}

	label := &types.Label{
		CollectionID: collection(c),
		Name:         req.Name,
		SchemaID:     req.SchemaID,
	}
	if _, err := s.store.CreateLabel(label); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, label)
}

// bindLabelRequest distinguishes the three binding states of the wire
// payload: schema_id absent (leave unchanged), schema_id null (unbind), and
// schema_id set (bind).
type bindLabelRequest struct {
	SchemaID json.RawMessage `json:"schema_id"`
}

func (s *Server) handleBindLabel(c echo.Context) error {
	var req bindLabelRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	if req.SchemaID == nil {
		// Field omitted: binding unchanged.
		label, err := s.store.GetLabel(collection(c), c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, label)
	}

	var schemaID *string
	if string(req.SchemaID) != "null" {
		var id string
		if err := json.Unmarshal(req.SchemaID, &id); err != nil {
			return types.NewValidationError("schema_id must be a string or null")
		}
		schemaID = &id
	}

	label, err := s.store.BindLabelSchema(collection(c), c.Param("id"), schemaID)
	if err != nil {
		return err
	}
	s.resolver.InvalidateAll()
	return c.JSON(http.StatusOK, label)
}
