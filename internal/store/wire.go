package store

import (
	"encoding/json"

	"taskboard/internal/fault"
)

// Record is a decoded backend record. Numbers are json.Number so identities
// survive decoding without float rounding.
type Record map[string]any

// Fields is a create/update payload. A missing key leaves the field unchanged;
// a key mapped to nil clears it.
type Fields map[string]any

// IDField is the identity column every table carries.
const IDField = "Id"

// Where operators understood by the backend.
const (
	OpEqualTo  = "EqualTo"
	OpContains = "Contains"
)

// Sort directions.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

type Condition struct {
	FieldName string `json:"fieldName"`
	Operator  string `json:"operator"`
	Values    []any  `json:"values"`
}

type Order struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

type Paging struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Query is the list request body.
type Query struct {
	Fields     []string    `json:"fields,omitempty"`
	Where      []Condition `json:"where,omitempty"`
	OrderBy    []Order     `json:"orderBy,omitempty"`
	PagingInfo *Paging     `json:"pagingInfo,omitempty"`
}

// Result is the per-record outcome inside a batch response.
type Result struct {
	Success bool               `json:"success"`
	Code    string             `json:"code,omitempty"`
	Data    Record             `json:"data,omitempty"`
	Message string             `json:"message,omitempty"`
	Errors  []fault.FieldError `json:"errors,omitempty"`
}

// ResultCodeNotFound marks a batch result whose Id is unknown.
const ResultCodeNotFound = "not_found"

// Envelope wraps every backend response.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Results []Result        `json:"results,omitempty"`
}

// BatchRequest is the create/update body.
type BatchRequest struct {
	Records []Fields `json:"records"`
}

// DeleteRequest is the delete body.
type DeleteRequest struct {
	RecordIDs []int64 `json:"RecordIds"`
}
