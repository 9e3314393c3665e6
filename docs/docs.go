// Package docs registers the OpenAPI document served at /docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Scoracle"
        },
        "license": {
            "name": "MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/matches": {
            "get": {
                "description": "Returns curated matches of the last published run, ordered by date, source and row index.",
                "produces": ["application/json"],
                "tags": ["matches"],
                "summary": "List curated matches",
                "parameters": [
                    {"enum": ["historical_export", "live_api"], "type": "string", "description": "Source family", "name": "source", "in": "query"},
                    {"type": "string", "description": "Canonical team name, home or away", "name": "team", "in": "query"},
                    {"type": "string", "description": "First date (YYYY-MM-DD)", "name": "from", "in": "query"},
                    {"type": "string", "description": "Last date (YYYY-MM-DD)", "name": "to", "in": "query"},
                    {"type": "integer", "description": "Maximum rows (1-1000, default 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "object", "additionalProperties": true}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        },
        "/matches/{matchKey}": {
            "get": {
                "description": "Returns the rows sharing a match_key. Keys published under the bare triple policy can be shared by several rows.",
                "produces": ["application/json"],
                "tags": ["matches"],
                "summary": "Get matches by key",
                "parameters": [
                    {"type": "string", "description": "URL-encoded match key", "name": "matchKey", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "object", "additionalProperties": true}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        },
        "/rankings": {
            "get": {
                "description": "Returns the processed ranking used by the last published run.",
                "produces": ["application/json"],
                "tags": ["rankings"],
                "summary": "Get the ranking snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/runs/latest": {
            "get": {
                "description": "Returns the diagnostics report of the most recent publication.",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get the latest run report",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/respond.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "respond.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "detail": {"type": "string"},
                        "message": {"type": "string"}
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8000",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Scoracle Matches API",
	Description:      "Read-only API over the curated international match table, its ranking snapshot and run diagnostics. Responses are JSON passthrough from Postgres.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
