// Package docs holds the swagger spec served at /api/v1/docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/predict": {
            "post": {
                "description": "Runs the fraud report pipeline on an uploaded CSV (multipart field \"file\" or a raw text/csv body)",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["predict"],
                "summary": "Score a job listings CSV",
                "parameters": [
                    {
                        "type": "file",
                        "description": "Job listings CSV with a description column",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dashboard.PredictResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dashboard.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/dashboard.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dashboard.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dashboard.ErrorResponse"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["predict"],
                "summary": "Fetch a stored report",
                "parameters": [
                    {"type": "string", "description": "Report ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dashboard.PredictResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dashboard.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "analysis.Summary": {
            "type": "object",
            "properties": {
                "fraud_count": {"type": "integer"},
                "total_jobs": {"type": "integer"},
                "fraud_percent": {"type": "number"},
                "has_data": {"type": "boolean"}
            }
        },
        "analysis.TopListing": {
            "type": "object",
            "properties": {
                "row": {"type": "integer"},
                "description": {"type": "string"},
                "fraud_probability": {"type": "number"}
            }
        },
        "dashboard.ErrorResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "integer"},
                "kind": {"type": "string"},
                "message": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "dashboard.PredictResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "alert": {"type": "string"},
                "summary": {"$ref": "#/definitions/analysis.Summary"},
                "histogram": {"type": "object"},
                "pie": {"type": "object"},
                "top": {"type": "array", "items": {"$ref": "#/definitions/analysis.TopListing"}},
                "filled_cells": {"type": "integer"},
                "download_url": {"type": "string"},
                "charts": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Fraudlens API",
	Description:      "Scores job listing CSV uploads for likely fraud.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
