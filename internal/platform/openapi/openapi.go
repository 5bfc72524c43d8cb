package openapi

import (
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
)

// Resource describes one REST collection and its object routes.
type Resource struct {
	// Name is the component schema name, e.g. "Lab".
	Name string
	// Path is the collection path relative to the API root, e.g. "/labs".
	Path string
	Tag  string
	// Properties are the rendered fields of one object.
	Properties map[string]interface{}
	// Required lists the fields a create request must carry.
	Required []string
	Filters  []Param
	// ReadOnly resources expose only GET and carry no timestamps.
	ReadOnly bool
}

// Param is a query string filter.
type Param struct {
	Name        string
	Schema      map[string]interface{}
	Description string
}

// Generator builds an OpenAPI 3.0 document from registered resources.
type Generator struct {
	resources []Resource
	title     string
	version   string
	baseURL   string
}

func NewGenerator(title, version, baseURL string) *Generator {
	return &Generator{title: title, version: version, baseURL: baseURL}
}

// AddResource registers resources in the order they should be documented.
func (g *Generator) AddResource(res ...Resource) {
	g.resources = append(g.resources, res...)
}

// GenerateSpec produces the OpenAPI 3.0 document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := make(map[string]interface{})
	schemas := buildComponentSchemas()

	for _, res := range g.resources {
		tag := res.Tag
		if tag == "" {
			tag = res.Name
		}
		schemas[res.Name] = buildResourceSchema(res)

		list := map[string]interface{}{
			"summary":     "List " + res.Name,
			"operationId": "list" + res.Name,
			"tags":        []string{tag},
			"parameters":  g.buildListParameters(res.Filters),
			"responses": map[string]interface{}{
				"200": buildResponseWithSchema("Paginated list", pageSchema(res.Name)),
				"400": buildResponseWithSchema("Invalid filter", ref("Error")),
			},
		}
		read := map[string]interface{}{
			"summary":     "Retrieve " + res.Name,
			"operationId": "retrieve" + res.Name,
			"tags":        []string{tag},
			"parameters":  []map[string]interface{}{idParam()},
			"responses": map[string]interface{}{
				"200": buildResponseWithSchema("Success", ref(res.Name)),
				"404": buildResponseWithSchema("Not Found", ref("Error")),
			},
		}
		collection := map[string]interface{}{"get": list}
		object := map[string]interface{}{"get": read}

		if !res.ReadOnly {
			collection["post"] = writeOperation("Create", res, tag, http.StatusCreated, false)
			object["put"] = writeOperation("Update", res, tag, http.StatusOK, true)
			object["patch"] = writeOperation("PartialUpdate", res, tag, http.StatusOK, true)
			object["delete"] = map[string]interface{}{
				"summary":     "Delete " + res.Name,
				"operationId": "delete" + res.Name,
				"tags":        []string{tag},
				"parameters":  []map[string]interface{}{idParam()},
				"security":    tokenSecurity(),
				"responses": map[string]interface{}{
					"204": map[string]interface{}{"description": "Deleted"},
					"401": buildResponseWithSchema("Unauthorized", ref("Error")),
					"403": buildResponseWithSchema("Forbidden", ref("Error")),
					"404": buildResponseWithSchema("Not Found", ref("Error")),
				},
			}
		}

		paths[res.Path+"/"] = collection
		paths[res.Path+"/{id}/"] = object
	}

	tags := make([]map[string]string, 0)
	for _, t := range g.Tags() {
		tags = append(tags, map[string]string{"name": t})
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"tags":    tags,
		"info": map[string]interface{}{
			"title":   g.title,
			"version": g.version,
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": schemas,
			"securitySchemes": map[string]interface{}{
				"tokenAuth": map[string]interface{}{
					"type":        "apiKey",
					"in":          "header",
					"name":        "Authorization",
					"description": `"Token <auth_token>"`,
				},
			},
		},
	}
}

// Tags returns the sorted, de-duplicated resource tags.
func (g *Generator) Tags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, res := range g.resources {
		tag := res.Tag
		if tag == "" {
			tag = res.Name
		}
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

func writeOperation(verb string, res Resource, tag string, status int, withID bool) map[string]interface{} {
	op := map[string]interface{}{
		"summary":     verb + " " + res.Name,
		"operationId": lowerFirst(verb) + res.Name,
		"tags":        []string{tag},
		"requestBody": buildRequestBody(res, verb != "PartialUpdate"),
		"security":    tokenSecurity(),
	}
	responses := map[string]interface{}{
		strconv.Itoa(status): buildResponseWithSchema(http.StatusText(status), ref(res.Name)),
		"400":                buildResponseWithSchema("Validation failed", ref("Error")),
		"401":                buildResponseWithSchema("Unauthorized", ref("Error")),
	}
	if withID {
		op["parameters"] = []map[string]interface{}{idParam()}
		responses["403"] = buildResponseWithSchema("Forbidden", ref("Error"))
		responses["404"] = buildResponseWithSchema("Not Found", ref("Error"))
	}
	op["responses"] = responses
	return op
}

func (g *Generator) buildListParameters(filters []Param) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(filters)+3)
	for _, p := range filters {
		result = append(result, map[string]interface{}{
			"name":        p.Name,
			"in":          "query",
			"schema":      p.Schema,
			"description": p.Description,
		})
	}

	common := []Param{
		{"limit", map[string]interface{}{"type": "integer", "minimum": 1}, "Number of results per page"},
		{"offset", map[string]interface{}{"type": "integer", "minimum": 0}, "Starting index for results"},
		{"ordering", String(), "Sort field (prefix with - for descending)"},
	}
	for _, p := range common {
		result = append(result, map[string]interface{}{
			"name":        p.Name,
			"in":          "query",
			"schema":      p.Schema,
			"description": p.Description,
		})
	}
	return result
}

func buildRequestBody(res Resource, full bool) map[string]interface{} {
	props := make(map[string]interface{}, len(res.Properties))
	for name, schema := range res.Properties {
		if readOnlyField(name) {
			continue
		}
		props[name] = schema
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if full && len(res.Required) > 0 {
		schema["required"] = res.Required
	}
	return map[string]interface{}{
		"required": true,
		"content": map[string]interface{}{
			echo.MIMEApplicationJSON: map[string]interface{}{"schema": schema},
		},
	}
}

func buildResponseWithSchema(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			echo.MIMEApplicationJSON: map[string]interface{}{
				"schema": schema,
			},
		},
	}
}

func buildComponentSchemas() map[string]interface{} {
	return map[string]interface{}{
		"Error": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"message": String(),
				"errors": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": String(),
				},
			},
		},
	}
}

func buildResourceSchema(res Resource) map[string]interface{} {
	props := map[string]interface{}{"id": ReadOnly(UUID())}
	if !res.ReadOnly {
		props["created_at"] = ReadOnly(DateTime())
		props["updated_at"] = ReadOnly(DateTime())
	}
	for name, schema := range res.Properties {
		props[name] = schema
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
}

func pageSchema(name string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"data":     ArrayOf(ref(name)),
			"total":    Integer(),
			"limit":    Integer(),
			"offset":   Integer(),
			"has_more": Boolean(),
			"next":     String(),
			"previous": String(),
		},
	}
}

func idParam() map[string]interface{} {
	return map[string]interface{}{"name": "id", "in": "path", "required": true, "schema": UUID()}
}

func tokenSecurity() []map[string][]string {
	return []map[string][]string{{"tokenAuth": {}}}
}

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

func readOnlyField(name string) bool {
	return name == "id" || name == "created_at" || name == "updated_at"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// Property schema helpers.

func String() map[string]interface{} { return map[string]interface{}{"type": "string"} }
func Boolean() map[string]interface{} { return map[string]interface{}{"type": "boolean"} }
func Integer() map[string]interface{} { return map[string]interface{}{"type": "integer"} }
func UUID() map[string]interface{} { return map[string]interface{}{"type": "string", "format": "uuid"} }
func DateTime() map[string]interface{} { return map[string]interface{}{"type": "string", "format": "date-time"} }

// Decimal is a fixed two-place decimal rendered as a string.
func Decimal() map[string]interface{} {
	return map[string]interface{}{"type": "string", "format": "decimal", "pattern": `^-?\d+\.\d{2}$`}
}

// MaxLength returns a string schema limited to n characters.
func MaxLength(n int) map[string]interface{} {
	return map[string]interface{}{"type": "string", "maxLength": n}
}

func Nullable(schema map[string]interface{}) map[string]interface{} {
	out := copySchema(schema)
	out["nullable"] = true
	return out
}

func ReadOnly(schema map[string]interface{}) map[string]interface{} {
	out := copySchema(schema)
	out["readOnly"] = true
	return out
}

func ArrayOf(items map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": items}
}

func Object(props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": props}
}

func copySchema(schema map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(schema)+1)
	for k, v := range schema {
		out[k] = v
	}
	return out
}

// RegisterRoutes serves the document at /schema. The document is built once
// on first request; resources must all be added before then.
func (g *Generator) RegisterRoutes(api *echo.Group) {
	var (
		once sync.Once
		doc  map[string]interface{}
	)
	api.GET("/schema", func(c echo.Context) error {
		once.Do(func() { doc = g.GenerateSpec() })
		return c.JSON(http.StatusOK, doc)
	})
}
