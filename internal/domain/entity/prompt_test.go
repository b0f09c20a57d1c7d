package entity

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() MockRequest {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("User-Agent", "curl/8.5.0")
	h.Set(HeaderAuthorization, "super-secret-key")
	h.Set(HeaderRefresh, "true")
	return MockRequest{
		Method:  http.MethodGet,
		Path:    "/users/42",
		Query:   "expand=posts",
		Headers: h,
	}
}

func TestBuildMockPrompt_RequestDetails(t *testing.T) {
	p := BuildMockPrompt(sampleRequest(), "")

	assert.Contains(t, p.User, "- Method: GET")
	assert.Contains(t, p.User, "- Path: /users/42?expand=posts")
	assert.Contains(t, p.User, "Accept: application/json")
	assert.Contains(t, p.User, "User-Agent: curl/8.5.0")
	assert.Contains(t, p.User, "- Body: None")
	assert.NotContains(t, p.User, "MUST be followed")
}

func TestBuildMockPrompt_SystemPromptDemandsRawJSON(t *testing.T) {
	p := BuildMockPrompt(sampleRequest(), "")

	assert.Contains(t, p.System, "Respond with raw JSON only")
	assert.Contains(t, p.System, "markdown")
	assert.Contains(t, p.System, `"request_id"`)
}

func TestBuildMockPrompt_EmbedsSchemaVerbatim(t *testing.T) {
	schema := `{"id": 1, "name": "Ada", "posts": [{"title": "x"}]}`
	p := BuildMockPrompt(sampleRequest(), schema)

	assert.Contains(t, p.User, schema)
	assert.Contains(t, p.User, "The field names and nested structure must remain identical.")
	assert.Contains(t, p.User, "changing only the values")
}

func TestBuildMockPrompt_ExcludesControlHeaders(t *testing.T) {
	req := sampleRequest()
	req.Headers.Add("x-vibeapi-authorization", "lowercase-secret")
	req.Headers["x-vibeapi-refresh"] = []string{"non-canonical"}

	for _, schema := range []string{"", `{"a":1}`} {
		p := BuildMockPrompt(req, schema)
		for _, text := range []string{p.System, p.User} {
			lower := strings.ToLower(text)
			assert.NotContains(t, lower, "x-vibeapi-authorization")
			assert.NotContains(t, lower, "x-vibeapi-refresh")
			assert.NotContains(t, text, "super-secret-key")
			assert.NotContains(t, text, "lowercase-secret")
			assert.NotContains(t, text, "non-canonical")
		}
	}
}

func TestBuildMockPrompt_Deterministic(t *testing.T) {
	req := sampleRequest()
	req.Headers.Set("X-B", "2")
	req.Headers.Set("X-A", "1")
	req.Body = `{"q":"hello"}`

	first := BuildMockPrompt(req, `{"a":1}`)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, BuildMockPrompt(req, `{"a":1}`))
	}
	assert.Less(t, strings.Index(first.User, "X-A: 1"), strings.Index(first.User, "X-B: 2"))
	assert.Contains(t, first.User, `- Body: {"q":"hello"}`)
}

func TestMockRequest_FullPath(t *testing.T) {
	assert.Equal(t, "/a", MockRequest{Path: "/a"}.FullPath())
	assert.Equal(t, "/a?b=c", MockRequest{Path: "/a", Query: "b=c"}.FullPath())
}

func TestNewEndpointSchema(t *testing.T) {
	s := NewEndpointSchema("/users", "post", `{}`)

	assert.Equal(t, "POST", s.Method)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.CreatedAt.IsZero())
	assert.Equal(t, SchemaKey("/users", "POST"), s.Key())
	assert.NotEqual(t, SchemaKey("/users", "GET"), s.Key())
}
