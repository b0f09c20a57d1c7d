package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EndpointSchema is the response shape remembered for one (pattern, method) pair.
// Schema holds the last sanitized body generated for that endpoint and is reused
// as a structural constraint for later generations.
type EndpointSchema struct {
	ID        string    `json:"id" bson:"id"`
	Pattern   string    `json:"pattern" bson:"pattern"`
	Method    string    `json:"method" bson:"method"`
	Schema    string    `json:"schema" bson:"schema"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func NewEndpointSchema(pattern, method, schema string) *EndpointSchema {
	now := time.Now().UTC()
	return &EndpointSchema{
		ID:        uuid.NewString(),
		Pattern:   pattern,
		Method:    strings.ToUpper(method),
		Schema:    schema,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Key returns the composite store key. A NUL separator cannot appear in an HTTP
// method or a request path.
func (s *EndpointSchema) Key() string {
	return SchemaKey(s.Pattern, s.Method)
}

func SchemaKey(pattern, method string) string {
	return strings.ToUpper(method) + "\x00" + pattern
}
