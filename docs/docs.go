// Package docs registers the OpenAPI description served at /swagger when
// SWAGGER_ENABLED is set. Regenerate with `swag init -g cmd/server/main.go`
// after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "schemes": {{ marshal .Schemes }},
  "swagger": "2.0",
  "info": {
    "description": "{{escape .Description}}",
    "title": "{{.Title}}",
    "version": "{{.Version}}"
  },
  "host": "{{.Host}}",
  "basePath": "{{.BasePath}}",
  "securityDefinitions": {
    "AdminKey": {"type": "apiKey", "name": "X-Admin-Key", "in": "header"}
  },
  "paths": {
    "/feedback": {
      "post": {
        "operationId": "submitFeedback",
        "tags": ["Feedback"],
        "summary": "Submit citizen feedback",
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "parameters": [
          {"type": "string", "name": "Idempotency-Key", "in": "header"},
          {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SubmitFeedbackRequest"}}
        ],
        "responses": {
          "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Feedback"}},
          "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
          "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
        }
      }
    },
    "/feedback/{id}": {
      "get": {
        "operationId": "getFeedback",
        "tags": ["Feedback"],
        "summary": "Track a submission",
        "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Feedback"}},
          "404": {"description": "Feedback not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
        }
      }
    },
    "/admin/feedback": {
      "get": {
        "operationId": "listFeedback",
        "tags": ["Admin"],
        "security": [{"AdminKey": []}],
        "summary": "List feedback (paginated)",
        "parameters": [
          {"type": "string", "name": "If-None-Match", "in": "header"},
          {"type": "string", "name": "status", "in": "query"},
          {"type": "string", "name": "category", "in": "query"},
          {"type": "string", "name": "urgency", "in": "query"},
          {"type": "string", "name": "sentiment", "in": "query"},
          {"type": "string", "name": "q", "in": "query"},
          {"type": "integer", "name": "page", "in": "query", "default": 1, "minimum": 1},
          {"type": "integer", "name": "page_size", "in": "query", "default": 20, "minimum": 1, "maximum": 100}
        ],
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListFeedbackResponse"}},
          "304": {"description": "Not Modified"},
          "401": {"description": "Invalid admin key", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
        }
      }
    },
    "/admin/feedback/{id}": {
      "patch": {
        "operationId": "updateFeedback",
        "tags": ["Admin"],
        "security": [{"AdminKey": []}],
        "summary": "Update a submission",
        "parameters": [
          {"type": "string", "name": "id", "in": "path", "required": true},
          {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.FeedbackUpdate"}}
        ],
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Feedback"}},
          "400": {"description": "Invalid update", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
          "404": {"description": "Feedback not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
        }
      },
      "delete": {
        "operationId": "deleteFeedback",
        "tags": ["Admin"],
        "security": [{"AdminKey": []}],
        "summary": "Delete a submission",
        "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
        "responses": {
          "204": {"description": "No Content"},
          "404": {"description": "Feedback not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
        }
      }
    },
    "/admin/feedback/{id}/similar": {
      "get": {
        "operationId": "similarFeedback",
        "tags": ["Admin"],
        "security": [{"AdminKey": []}],
        "summary": "Find related submissions",
        "parameters": [
          {"type": "string", "name": "id", "in": "path", "required": true},
          {"type": "integer", "name": "k", "in": "query", "default": 5, "minimum": 1, "maximum": 50}
        ],
        "responses": {"200": {"description": "OK"}, "404": {"description": "Feedback not found"}}
      }
    },
    "/admin/stats": {
      "get": {
        "operationId": "feedbackStats",
        "tags": ["Admin"],
        "security": [{"AdminKey": []}],
        "summary": "Aggregate counters",
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/admin/analytics/trends": {
      "get": {
        "operationId": "analyticsTrends",
        "tags": ["Analytics"],
        "security": [{"AdminKey": []}],
        "summary": "Submission trends",
        "parameters": [{"type": "string", "name": "period", "in": "query", "enum": ["daily", "weekly", "monthly"], "default": "weekly"}],
        "responses": {"200": {"description": "OK"}, "400": {"description": "Unknown period"}}
      }
    },
    "/admin/analytics/sla": {
      "get": {"operationId": "analyticsSLA", "tags": ["Analytics"], "security": [{"AdminKey": []}], "summary": "SLA breach prediction", "responses": {"200": {"description": "OK"}}}
    },
    "/admin/analytics/geo": {
      "get": {
        "operationId": "analyticsGeo",
        "tags": ["Analytics"],
        "security": [{"AdminKey": []}],
        "summary": "Geographic hotspots",
        "parameters": [
          {"type": "integer", "name": "top_n", "in": "query", "minimum": 0},
          {"type": "string", "name": "category", "in": "query"}
        ],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/admin/analytics/departments": {
      "get": {"operationId": "analyticsDepartments", "tags": ["Analytics"], "security": [{"AdminKey": []}], "summary": "Department performance", "responses": {"200": {"description": "OK"}}}
    },
    "/admin/analytics/heatmap": {
      "get": {"operationId": "analyticsHeatmap", "tags": ["Analytics"], "security": [{"AdminKey": []}], "summary": "Weekday × hour heatmap", "responses": {"200": {"description": "OK"}}}
    },
    "/admin/analytics/overview": {
      "get": {
        "operationId": "analyticsOverview",
        "tags": ["Analytics"],
        "security": [{"AdminKey": []}],
        "summary": "All analyses at once",
        "parameters": [{"type": "string", "name": "period", "in": "query", "enum": ["daily", "weekly", "monthly"], "default": "weekly"}],
        "responses": {"200": {"description": "OK"}, "400": {"description": "Unknown period"}}
      }
    },
    "/admin/analytics/config": {
      "get": {"operationId": "getAnalyticsConfig", "tags": ["Analytics"], "security": [{"AdminKey": []}], "summary": "Active analytics configuration", "responses": {"200": {"description": "OK"}}},
      "put": {
        "operationId": "putAnalyticsConfig",
        "tags": ["Analytics"],
        "security": [{"AdminKey": []}],
        "summary": "Replace the analytics configuration",
        "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}],
        "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid configuration"}}
      }
    }
  },
  "definitions": {
    "handlers.ErrorResponse": {
      "type": "object",
      "properties": {
        "request_id": {"type": "string"},
        "code": {"type": "string", "example": "not_found"},
        "message": {"type": "string", "example": "resource not found"}
      }
    },
    "handlers.SubmitFeedbackRequest": {
      "type": "object",
      "required": ["feedback"],
      "properties": {
        "name": {"type": "string"},
        "email": {"type": "string"},
        "phone": {"type": "string"},
        "feedback_type": {"type": "string"},
        "category": {"type": "string"},
        "urgency": {"type": "string"},
        "area": {"type": "string"},
        "address": {"type": "string"},
        "location": {"type": "string"},
        "latitude": {"type": "number"},
        "longitude": {"type": "number"},
        "title": {"type": "string"},
        "feedback": {"type": "string"}
      }
    },
    "domain.FeedbackUpdate": {
      "type": "object",
      "properties": {
        "status": {"type": "string", "enum": ["New", "In Progress", "Resolved", "Closed"]},
        "assigned_to": {"type": "string"},
        "admin_notes": {"type": "string"},
        "priority": {"type": "string", "enum": ["Low", "Normal", "High", "Critical"]}
      }
    },
    "domain.Feedback": {
      "type": "object",
      "properties": {
        "id": {"type": "string", "example": "3F9A2C1B"},
        "timestamp": {"type": "string", "format": "date-time"},
        "updated_at": {"type": "string", "format": "date-time"},
        "feedback_type": {"type": "string"},
        "category": {"type": "string"},
        "urgency": {"type": "string"},
        "area": {"type": "string"},
        "title": {"type": "string"},
        "feedback": {"type": "string"},
        "sentiment": {"type": "string"},
        "sentiment_score": {"type": "number"},
        "keywords": {"type": "array", "items": {"type": "string"}},
        "summary": {"type": "string"},
        "status": {"type": "string"},
        "priority": {"type": "string"},
        "assigned_to": {"type": "string"},
        "admin_notes": {"type": "string"}
      }
    },
    "handlers.ListFeedbackResponse": {
      "type": "object",
      "properties": {
        "feedback": {"type": "array", "items": {"$ref": "#/definitions/domain.Feedback"}},
        "pagination": {"$ref": "#/definitions/handlers.Pagination"}
      }
    },
    "handlers.Pagination": {
      "type": "object",
      "properties": {
        "page": {"type": "integer"},
        "page_size": {"type": "integer"},
        "total": {"type": "integer"},
        "total_pages": {"type": "integer"},
        "has_next": {"type": "boolean"}
      }
    }
  }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Citizen Feedback API",
	Description:      "Citizen feedback intake, staff workflow and analytics (trends, SLA risk, geographic hotspots, department performance, heatmap).",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
