// Package docs registers the Swagger document served at /swagger/.
// Regenerate with `go generate ./internal/server`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "vulnprobe maintainers"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/scans": {
            "get": {
                "produces": ["application/json"],
                "tags": ["scans"],
                "summary": "List scans submitted to this process",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/app.Task"}}
                    }
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["scans"],
                "summary": "Submit a scan",
                "parameters": [
                    {
                        "description": "Scan target",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/server.SubmitScanRequest"}
                    }
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/app.Task"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/scans/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["scans"],
                "summary": "Get scan status",
                "parameters": [
                    {"type": "string", "description": "Scan ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/app.Task"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["scans"],
                "summary": "Cancel a running scan",
                "parameters": [
                    {"type": "string", "description": "Scan ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/scans/{id}/report": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Get a scan report with severity aggregates",
                "parameters": [
                    {"type": "string", "description": "Scan ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/report.Enriched"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/scans/{id}/report/download": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Download the raw report as a JSON attachment",
                "parameters": [
                    {"type": "string", "description": "Scan ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Report"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/reports": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "List persisted reports",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of reports", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/registry.ReportMeta"}}
                    },
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/reports/{id}": {
            "delete": {
                "tags": ["reports"],
                "summary": "Delete a persisted report",
                "parameters": [
                    {"type": "string", "description": "Scan ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "app.Task": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "target": {"type": "string"},
                "depth": {"type": "integer"},
                "max_pages": {"type": "integer"},
                "status": {"type": "string", "enum": ["queued", "running", "done", "error"]},
                "error": {"type": "string"},
                "pages": {"type": "integer"},
                "findings": {"type": "integer"},
                "created_at": {"type": "string"},
                "started_at": {"type": "string"},
                "ended_at": {"type": "string"}
            }
        },
        "model.Finding": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["SQLi", "SQLi-suspected", "XSS-reflected", "SQLi-form", "XSS-form", "Header-Missing"]},
                "url": {"type": "string"},
                "param": {"type": "string"},
                "payload": {"type": "string"},
                "header": {"type": "string"},
                "evidence": {"type": "string"},
                "severity": {"type": "string", "enum": ["high", "medium", "low", "info"]},
                "method": {"type": "string"},
                "data": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "model.Report": {
            "type": "object",
            "properties": {
                "target": {"type": "string"},
                "timestamp": {"type": "string"},
                "findings": {"type": "array", "items": {"$ref": "#/definitions/model.Finding"}}
            }
        },
        "model.Summary": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "severities": {"type": "object", "additionalProperties": {"type": "integer"}},
                "types": {"type": "object", "additionalProperties": {"type": "integer"}},
                "affected_pages": {"type": "integer"}
            }
        },
        "report.Enriched": {
            "type": "object",
            "properties": {
                "target": {"type": "string"},
                "timestamp": {"type": "string"},
                "findings": {"type": "array", "items": {"$ref": "#/definitions/model.Finding"}},
                "summary": {"$ref": "#/definitions/model.Summary"}
            }
        },
        "registry.ReportMeta": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "target": {"type": "string"},
                "timestamp": {"type": "string"},
                "pages": {"type": "integer"},
                "findings": {"type": "integer"},
                "created_at": {"type": "integer"}
            }
        },
        "server.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "scan not found"}
            }
        },
        "server.SubmitScanRequest": {
            "type": "object",
            "properties": {
                "target": {"type": "string", "example": "http://localhost:9999/"},
                "depth": {"type": "integer", "example": 2},
                "max_pages": {"type": "integer", "example": 50}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "vulnprobe API",
	Description:      "Submit heuristic vulnerability scans and fetch their reports.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
