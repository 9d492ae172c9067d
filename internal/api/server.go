// Package api exposes the Facets service over HTTP: field catalog, schema
// registry, label bindings, and the resolved item projection with its
// batched write path.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mesh-intelligence/facets/internal/resolver"
	"github.com/mesh-intelligence/facets/internal/sqlite"
	"github.com/mesh-intelligence/facets/internal/writer"
	"github.com/mesh-intelligence/facets/pkg/types"
)

// DefaultCollection is the collection used when a request does not name one.
// Multi-collection routing is owned by the surrounding application; it
// passes the X-Collection-ID header when it needs another scope.
const DefaultCollection = "default"

// collectionHeader selects the collection scope of a request.
const collectionHeader = "X-Collection-ID"

// Server wires the store, resolver, and write coordinator behind an echo
// instance.
type Server struct {
	echo     *echo.Echo
	store    *sqlite.Store
	resolver *resolver.Resolver
	writer   *writer.Coordinator
}

// NewServer builds the HTTP server over an open store.
func NewServer(store *sqlite.Store) *Server {
	res := resolver.New(store)
	s := &Server{
		echo:     echo.New(),
		store:    store,
		resolver: res,
		writer:   writer.New(store, res),
	}

	e := s.echo
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.HTTPErrorHandler = errorHandler

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.POST("/fields", s.handleCreateField)
	e.POST("/fields/check-duplicate", s.handleCheckDuplicate)
	e.GET("/fields", s.handleListFields)
	e.GET("/fields/:id", s.handleGetField)
	e.PUT("/fields/:id", s.handleUpdateField)
	e.DELETE("/fields/:id", s.handleDeleteField)

	e.POST("/schemas", s.handleCreateSchema)
	e.GET("/schemas", s.handleListSchemas)
	e.GET("/schemas/:id", s.handleGetSchema)
	e.PUT("/schemas/:id", s.handleUpdateSchema)
	e.DELETE("/schemas/:id", s.handleDeleteSchema)
	e.POST("/schemas/:id/fields/:fieldId", s.handleAddSchemaField)
	e.DELETE("/schemas/:id/fields/:fieldId", s.handleRemoveSchemaField)
	e.PUT("/schemas/:id/fields/reorder", s.handleReorderSchemaFields)

	e.POST("/labels", s.handleCreateLabel)
	e.PUT("/labels/:id", s.handleBindLabel)

	e.POST("/items", s.handleCreateItem)
	e.GET("/items/:id", s.handleGetItem)
	e.PUT("/items/:id/fields", s.handleUpdateItemFields)
	e.PUT("/items/:id/labels/:labelId", s.handleApplyLabel)
	e.DELETE("/items/:id/labels/:labelId", s.handleRemoveItemLabel)

	return s
}

// Handler returns the http.Handler, for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start begins serving on addr and blocks until Shutdown.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// collection resolves the collection scope of a request.
func collection(c echo.Context) string {
	if id := c.Request().Header.Get(collectionHeader); id != "" {
		return id
	}
	return DefaultCollection
}

// errorResponse is the wire shape of every error payload.
type errorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

// errorHandler maps the error taxonomy onto status codes in one place:
// validation 422, not-found 404, conflict and concurrency 409, malformed
// requests 400, everything else 500.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var ve *types.ValidationError
	if errors.As(err, &ve) {
		_ = c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Error: ve.Message, Kind: "validation", Fields: ve.Fields,
		})
		return
	}
	var nfe *types.NotFoundError
	if errors.As(err, &nfe) {
		_ = c.JSON(http.StatusNotFound, errorResponse{Error: nfe.Error(), Kind: "not_found"})
		return
	}
	var conflict *types.ConflictError
	if errors.As(err, &conflict) {
		_ = c.JSON(http.StatusConflict, errorResponse{Error: conflict.Message, Kind: "conflict"})
		return
	}
	var race *types.ConcurrencyError
	if errors.As(err, &race) {
		_ = c.JSON(http.StatusConflict, errorResponse{Error: race.Message, Kind: "concurrency"})
		return
	}
	if errors.Is(err, types.ErrInvalidID) || errors.Is(err, types.ErrInvalidData) {
		_ = c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		_ = c.JSON(he.Code, errorResponse{Error: msg, Kind: "bad_request"})
		return
	}

	c.Logger().Errorf("handler error: %v", err)
	_ = c.JSON(http.StatusInternalServerError, errorResponse{
		Error: "internal error", Kind: "internal",
	})
}
