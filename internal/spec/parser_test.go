package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMock() map[string]any {
	return map[string]any{
		"openapi": "3.0.0",
		"info":    map[string]any{"title": "Sample API", "version": "1.0.0"},
		"paths": map[string]any{
			"/pets": map[string]any{
				"parameters": []any{
					map[string]any{"in": "query", "name": "limit", "schema": map[string]any{"type": "integer"}},
					map[string]any{"in": "header", "name": "X-Trace"},
				},
				"summary": "ignored path-level key",
				"GET": map[string]any{
					"summary":    "List pets",
					"tags":       []any{"read", "animal", "read"},
					"parameters": []any{map[string]any{"in": "query", "name": "limit", "required": true, "type": "integer"}},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "ok",
							"content": map[string]any{
								"text/plain":       map[string]any{"schema": map[string]any{"type": "string"}},
								"application/json": map[string]any{"schema": map[string]any{"type": "array", "items": map[string]any{"$ref": "#/components/schemas/Pet"}}},
							},
						},
						"404": map[string]any{"$ref": "#/components/responses/NotFound"},
					},
					"security": []any{map[string]any{"oauth": []any{}, "apiKey": []any{}}},
				},
				"post": map[string]any{
					"operationId": "createPet",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{"schema": map[string]any{"$ref": "#/components/schemas/Pet"}},
						},
					},
					"responses": map[string]any{"201": map[string]any{"description": "created"}},
				},
				"head": map[string]any{"responses": map[string]any{}},
			},
			"/admin": map[string]any{
				"delete": map[string]any{"tags": []any{"admin"}},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Pet": map[string]any{
					"type":     "object",
					"required": []any{"id"},
					"properties": map[string]any{
						"id":   map[string]any{"type": "integer"},
						"name": map[string]any{"type": []any{"null", "string"}},
					},
				},
			},
			"responses": map[string]any{
				"NotFound": map[string]any{"description": "missing"},
			},
			"securitySchemes": map[string]any{"apiKey": map[string]any{"type": "apiKey"}},
		},
	}
}

func TestParseFromMock_Endpoints(t *testing.T) {
	t.Parallel()
	doc, err := NewParser().ParseFromMock(sampleMock())
	require.NoError(t, err)
	assert.True(t, doc.Validate())
	assert.Equal(t, "Sample API", doc.Info().Title)
	assert.Contains(t, doc.SecuritySchemes(), "apiKey")

	require.Len(t, doc.Endpoints, 3)
	assert.Equal(t, "/admin", doc.Endpoints[0].Path)
	assert.Equal(t, DELETE, doc.Endpoints[0].Method)
	assert.Equal(t, GET, doc.Endpoints[1].Method)
	assert.Equal(t, POST, doc.Endpoints[2].Method)

	list := doc.Endpoints[1]
	assert.Equal(t, "List pets", list.Summary)
	assert.Equal(t, []string{"apiKey", "oauth"}, list.Security)

	require.Len(t, list.Parameters, 2)
	limit := list.Parameters[0]
	assert.Equal(t, "limit", limit.Name)
	assert.True(t, limit.Required, "operation parameter overrides path-level one")
	assert.Equal(t, "integer", limit.Type)
	trace := list.Parameters[1]
	assert.Equal(t, "X-Trace", trace.Name)
	assert.Equal(t, "object", trace.Type)
	assert.False(t, trace.Required)

	require.Len(t, list.Responses, 2)
	ok := list.Responses[0]
	assert.Equal(t, "200", ok.Code)
	require.NotNil(t, ok.Schema)
	assert.Equal(t, "array", ok.Schema.Type)
	assert.Equal(t, "#/components/schemas/Pet", ok.Schema.Items.Ref)
	assert.Equal(t, "missing", list.Responses[1].Description)

	create := doc.Endpoints[2]
	body := create.ParametersIn(InBody)
	require.Len(t, body, 1)
	assert.Equal(t, "body", body[0].Name)
	assert.True(t, body[0].Required)
	assert.Equal(t, "#/components/schemas/Pet", body[0].Schema.Ref)
}

func TestParseFromMock_Schemas(t *testing.T) {
	t.Parallel()
	doc, err := NewParser().ParseFromMock(sampleMock())
	require.NoError(t, err)

	pet := doc.Schemas()["Pet"]
	require.NotNil(t, pet)
	assert.True(t, pet.IsRequired("id"))
	assert.False(t, pet.IsRequired("name"))
	assert.Equal(t, "string", pet.Properties["name"].Type)
}

func TestDocumentSchemas_Precedence(t *testing.T) {
	t.Parallel()
	p := NewParser()

	doc, err := p.ParseFromMock(map[string]any{
		"swagger":     "2.0",
		"definitions": map[string]any{"User": map[string]any{"type": "object"}},
	})
	require.NoError(t, err)
	assert.Contains(t, doc.Schemas(), "User")
	assert.False(t, doc.Validate())

	doc, err = p.ParseFromMock(map[string]any{
		"components":  map[string]any{"schemas": map[string]any{}},
		"definitions": map[string]any{"User": map[string]any{"type": "object"}},
	})
	require.NoError(t, err)
	assert.Empty(t, doc.Schemas())

	doc, err = p.ParseFromMock(map[string]any{"info": map[string]any{}})
	require.NoError(t, err)
	assert.NotNil(t, doc.Schemas())
	assert.Empty(t, doc.Schemas())
	assert.Empty(t, doc.Endpoints)
}

func TestParseFromMock_Errors(t *testing.T) {
	t.Parallel()
	p := NewParser()

	_, err := p.ParseFromMock(nil)
	assert.True(t, IsCode(err, ParseError))

	_, err = p.ParseFromMock(map[string]any{"info": map[string]any{}, "paths": "nope"})
	assert.True(t, IsCode(err, ParseError))
}

func TestParseFromMock_SkipsMalformedPieces(t *testing.T) {
	t.Parallel()
	doc, err := NewParser().ParseFromMock(map[string]any{
		"info": map[string]any{},
		"paths": map[string]any{
			"/bad":  "not an object",
			"/also": map[string]any{"get": "not an object"},
			"/ok": map[string]any{
				"put": map[string]any{
					"parameters": []any{"junk", map[string]any{"in": "path", "name": "id"}},
				},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, doc.Endpoints, 1)
	require.Len(t, doc.Endpoints[0].Parameters, 1)
	assert.Equal(t, "id", doc.Endpoints[0].Parameters[0].Name)
}

func TestGroupEndpointsByTag(t *testing.T) {
	t.Parallel()
	eps := []Endpoint{
		{Path: "/a", Method: GET},
		{Path: "/b", Method: GET, Tags: []string{"x", "y"}},
		{Path: "/c", Method: POST, Tags: []string{"x", "x"}},
	}
	groups := GroupEndpointsByTag(eps)

	require.Len(t, groups, 3)
	require.Len(t, groups[DefaultTag], 1)
	assert.Equal(t, "/a", groups[DefaultTag][0].Path)
	require.Len(t, groups["x"], 2)
	assert.Equal(t, "/b", groups["x"][0].Path)
	assert.Equal(t, "/c", groups["x"][1].Path)
	require.Len(t, groups["y"], 1)
}
