// Schema registry handlers.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/facets/pkg/types"
)

type schemaFieldEntry struct {
	FieldID string `json:"field_id"`
	Order   int    `json:"order"`
	Compact bool   `json:"compact"`
}

func toSchemaFields(entries []schemaFieldEntry) []types.SchemaField {
	out := make([]types.SchemaField, 0, len(entries))
	for _, e := range entries {
		out = append(out, types.SchemaField{
			FieldID:      e.FieldID,
			DisplayOrder: e.Order,
			Compact:      e.Compact,
		})
	}
	return out
}

type createSchemaRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Fields      []schemaFieldEntry `json:"fields"`
}

func (s *Server) handleCreateSchema(c echo.Context) error {
	var req createSchemaRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	sch := &types.Schema{
		CollectionID: collection(c),
		Name:         req.Name,
		Description:  req.Description,
		Fields:       toSchemaFields(req.Fields),
	}
	if _, err := s.store.CreateSchema(sch); err != nil {
		return err
	}
	s.resolver.InvalidateAll()
	return c.JSON(http.StatusCreated, sch)
}

func (s *Server) handleListSchemas(c echo.Context) error {
	schemas, err := s.store.ListSchemas(collection(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, schemas)
}

func (s *Server) handleGetSchema(c echo.Context) error {
	sch, err := s.store.GetSchema(collection(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sch)
}

type updateSchemaRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// handleUpdateSchema updates schema metadata only; membership changes go
// through the dedicated field routes.
func (s *Server) handleUpdateSchema(c echo.Context) error {
	var req updateSchemaRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	sch, err := s.store.UpdateSchemaMeta(collection(c), c.Param("id"), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sch)
}

func (s *Server) handleDeleteSchema(c echo.Context) error {
	id := c.Param("id")
	cascade := c.QueryParam("cascade") == "true"

	stats, err := s.store.DeleteSchema(collection(c), id, cascade)
	if err != nil {
		return err
	}
	s.resolver.InvalidateAll()
	return c.JSON(http.StatusOK, deleteResponse{Deleted: id, Stats: stats})
}

type addSchemaFieldRequest struct {
	Order   int  `json:"order"`
	Compact bool `json:"compact"`
}

func (s *Server) handleAddSchemaField(c echo.Context) error {
	var req addSchemaFieldRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	err := s.store.AddSchemaField(collection(c), c.Param("id"), types.SchemaField{
		FieldID:      c.Param("fieldId"),
		DisplayOrder: req.Order,
		Compact:      req.Compact,
	})
	if err != nil {
		return err
	}
	s.resolver.InvalidateAll()

	sch, err := s.store.GetSchema(collection(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sch)
}

func (s *Server) handleRemoveSchemaField(c echo.Context) error {
	if err := s.store.RemoveSchemaField(collection(c), c.Param("id"), c.Param("fieldId")); err != nil {
		return err
	}
	s.resolver.InvalidateAll()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleReorderSchemaFields(c echo.Context) error {
	var entries []schemaFieldEntry
	if err := c.Bind(&entries); err != nil {
		return err
	}

	sch, err := s.store.ReorderSchemaFields(collection(c), c.Param("id"), toSchemaFields(entries))
	if err != nil {
		return err
	}
	s.resolver.InvalidateAll()
	return c.JSON(http.StatusOK, sch)
}
