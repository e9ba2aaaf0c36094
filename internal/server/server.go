// Package server exposes the records store over the JSON table API consumed by
// the board client.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"taskboard/internal/events"
	"taskboard/internal/records"
	"taskboard/internal/store"
)

// Config for the HTTP API handler.
type Config struct {
	Records  *records.Repo
	BasePath string
	Auth     AuthConfig
	Logger   *zap.Logger
}

// apiError is a failed envelope. Every error leaves the API in this shape.
type apiError struct {
	status  int
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Message }

func newAPIError(status int, code, message string) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{status: status, Code: code, Message: message}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return store.ResultCodeNotFound
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

type listEnvelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    []store.Record `json:"data"`
}

type recordEnvelope struct {
	Success bool         `json:"success"`
	Data    store.Record `json:"data"`
}

type batchEnvelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Results []store.Result `json:"results"`
}

type eventsEnvelope struct {
	Success bool           `json:"success"`
	Data    []events.Event `json:"data"`
}

// New returns an HTTP handler exposing the table API under cfg.BasePath.
func New(cfg Config) (http.Handler, error) {
	if cfg.Records == nil {
		return nil, errors.New("server: records repo is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", joinErrors(msg, errs))
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		return newAPIError(status, "", joinErrors(msg, errs))
	}

	router := chi.NewRouter()
	router.Use(requestLogger(logger))
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Taskboard API", "1.0.0")
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = ""
	hcfg.SchemasPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	h := handlers{repo: cfg.Records, logger: logger}
	registerHealth(group)
	h.registerTables(group)
	h.registerEvents(group)
	h.registerMaintenance(group)
	registerOpenAPI(router, api, basePath)
	return router, nil
}

func joinErrors(msg string, errs []error) string {
	if len(errs) == 0 {
		return msg
	}
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			parts = append(parts, err.Error())
		}
	}
	if len(parts) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(parts, "; ")
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	r.Get(path.Join(basePath, "openapi.json"), func(w http.ResponseWriter, _ *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type handlers struct {
	repo   *records.Repo
	logger *zap.Logger
}

// handleError maps repository errors onto the envelope. Unexpected errors are
// logged and hidden behind a generic message.
func (h handlers) handleError(err error) huma.StatusError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, records.ErrUnknownTable), errors.Is(err, records.ErrNotFound):
		return newAPIError(http.StatusNotFound, "", err.Error())
	case errors.Is(err, records.ErrInvalidQuery):
		return newAPIError(http.StatusBadRequest, "", err.Error())
	case errors.Is(err, context.Canceled):
		return newAPIError(http.StatusServiceUnavailable, "", "request cancelled")
	}
	h.logger.Error("request failed", zap.Error(err))
	return newAPIError(http.StatusInternalServerError, "", "internal error")
}

type tablePath struct {
	Table string `path:"table" doc:"Table name (tasks, projects, categories)"`
}

type queryInput struct {
	Table string `path:"table"`
	Body  store.Query
}

type recordPath struct {
	Table string `path:"table"`
	ID    int64  `path:"id"`
}

type batchInput struct {
	Table string `path:"table"`
	Body  store.BatchRequest
}

type deleteInput struct {
	Table string `path:"table"`
	Body  store.DeleteRequest
}

type listOutput struct {
	Body listEnvelope
}

type recordOutput struct {
	Body recordEnvelope
}

type batchOutput struct {
	Body batchEnvelope
}

func (h handlers) registerTables(api huma.API) {
	errs := []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError}

	huma.Register(api, huma.Operation{
		OperationID: "query-records",
		Method:      http.MethodPost,
		Path:        "/tables/{table}/query",
		Summary:     "List records",
		Errors:      errs,
	}, func(ctx context.Context, in *queryInput) (*listOutput, error) {
		recs, err := h.repo.Query(ctx, in.Table, in.Body)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &listOutput{Body: listEnvelope{Success: true, Data: recs}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-record",
		Method:      http.MethodGet,
		Path:        "/tables/{table}/records/{id}",
		Summary:     "Get record",
		Errors:      errs,
	}, func(ctx context.Context, in *recordPath) (*recordOutput, error) {
		rec, err := h.repo.Get(ctx, in.Table, in.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &recordOutput{Body: recordEnvelope{Success: true, Data: rec}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-records",
		Method:      http.MethodPost,
		Path:        "/tables/{table}/records",
		Summary:     "Create records",
		Errors:      errs,
	}, func(ctx context.Context, in *batchInput) (*batchOutput, error) {
		results, err := h.repo.Insert(ctx, in.Table, actorFromContext(ctx), in.Body.Records)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &batchOutput{Body: batchEnvelope{Success: true, Results: results}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-records",
		Method:      http.MethodPatch,
		Path:        "/tables/{table}/records",
		Summary:     "Update records",
		Errors:      errs,
	}, func(ctx context.Context, in *batchInput) (*batchOutput, error) {
		results, err := h.repo.Update(ctx, in.Table, actorFromContext(ctx), in.Body.Records)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &batchOutput{Body: batchEnvelope{Success: true, Results: results}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-records",
		Method:      http.MethodPost,
		Path:        "/tables/{table}/records/delete",
		Summary:     "Delete records",
		Errors:      errs,
	}, func(ctx context.Context, in *deleteInput) (*batchOutput, error) {
		results, err := h.repo.Delete(ctx, in.Table, actorFromContext(ctx), in.Body.RecordIDs)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &batchOutput{Body: batchEnvelope{Success: true, Results: results}}, nil
	})
}

func (h handlers) registerEvents(api huma.API) {
	type eventsInput struct {
		Table    string `query:"table"`
		RecordID int64  `query:"record_id"`
		After    int64  `query:"after"`
		Limit    int    `query:"limit" default:"100" maximum:"1000"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List change events",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, in *eventsInput) (*struct{ Body eventsEnvelope }, error) {
		evts, err := events.List(ctx, h.repo.DB, events.Filter{Table: in.Table, RecordID: in.RecordID, AfterID: in.After, Limit: in.Limit})
		if err != nil {
			return nil, h.handleError(err)
		}
		if evts == nil {
			evts = []events.Event{}
		}
		return &struct{ Body eventsEnvelope }{Body: eventsEnvelope{Success: true, Data: evts}}, nil
	})
}

func (h handlers) registerMaintenance(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "recount-categories",
		Method:      http.MethodPost,
		Path:        "/maintenance/recount-categories",
		Summary:     "Recompute category task counts",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		n, err := h.repo.RecountCategories(ctx)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{"success": true, "updated": n}}, nil
	})
}
