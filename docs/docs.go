// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with `go generate ./cmd/server` after changing handler
// annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {"post": {"tags": ["Auth"], "summary": "Create an account", "operationId": "register", "responses": {"201": {"description": "Created"}, "409": {"description": "email_taken"}}}},
        "/auth/login": {"post": {"tags": ["Auth"], "summary": "Sign in", "operationId": "login", "responses": {"200": {"description": "OK"}, "401": {"description": "invalid_credentials"}}}},
        "/auth/me": {"get": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Current user", "operationId": "me", "responses": {"200": {"description": "OK"}}}},
        "/surveys": {
            "get": {"tags": ["Surveys"], "summary": "List surveys (paginated)", "operationId": "listSurveys", "responses": {"200": {"description": "OK"}, "304": {"description": "Not Modified"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Surveys"], "summary": "Create a survey", "operationId": "createSurvey", "responses": {"201": {"description": "Created"}}}
        },
        "/surveys/{id}": {
            "get": {"tags": ["Surveys"], "summary": "Get a survey", "operationId": "getSurvey", "responses": {"200": {"description": "OK"}, "404": {"description": "not_found"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["Surveys"], "summary": "Update a draft survey", "operationId": "updateSurvey", "responses": {"200": {"description": "OK"}, "409": {"description": "not_editable"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Surveys"], "summary": "Delete a draft survey", "operationId": "deleteSurvey", "responses": {"204": {"description": "No Content"}}}
        },
        "/surveys/{id}/publish": {"post": {"security": [{"BearerAuth": []}], "tags": ["Surveys"], "summary": "Publish a survey", "operationId": "publishSurvey", "responses": {"200": {"description": "OK"}, "409": {"description": "invalid_transition"}}}},
        "/surveys/{id}/close": {"post": {"security": [{"BearerAuth": []}], "tags": ["Surveys"], "summary": "Close a survey", "operationId": "closeSurvey", "responses": {"200": {"description": "OK"}, "409": {"description": "invalid_transition"}}}},
        "/surveys/{id}/responses": {"get": {"security": [{"BearerAuth": []}], "tags": ["Responses"], "summary": "List the responses of a survey", "operationId": "listSurveyResponses", "responses": {"200": {"description": "OK"}}}},
        "/surveys/{id}/responses/search": {"get": {"security": [{"BearerAuth": []}], "tags": ["Responses"], "summary": "Search free-text answers", "operationId": "searchResponses", "responses": {"200": {"description": "OK"}}}},
        "/surveys/{id}/analytics": {"get": {"security": [{"BearerAuth": []}], "tags": ["Analytics"], "summary": "Survey analytics", "operationId": "getSurveyAnalytics", "responses": {"200": {"description": "OK"}}}},
        "/surveys/{id}/export": {"get": {"security": [{"BearerAuth": []}], "tags": ["Analytics"], "summary": "Download survey results", "operationId": "exportSurveyAnalytics", "responses": {"200": {"description": "OK"}, "400": {"description": "unsupported_format"}}}},
        "/surveys/{id}/live": {"get": {"security": [{"BearerAuth": []}], "tags": ["Analytics"], "summary": "Stream new responses", "operationId": "liveSurveyResponses", "responses": {"101": {"description": "Switching Protocols"}}}},
        "/responses": {"post": {"tags": ["Responses"], "summary": "Submit a survey response", "operationId": "submitResponse", "responses": {"201": {"description": "Created"}, "400": {"description": "survey_not_available | survey_not_open"}, "409": {"description": "duplicate_submission"}}}},
        "/responses/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Responses"], "summary": "Get a response", "operationId": "getResponse", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Responses"], "summary": "Delete a response", "operationId": "deleteResponse", "responses": {"204": {"description": "No Content"}}}
        },
        "/templates": {
            "get": {"tags": ["Templates"], "summary": "List templates", "operationId": "listTemplates", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Templates"], "summary": "Create a template", "operationId": "createTemplate", "responses": {"201": {"description": "Created"}}}
        },
        "/templates/{id}": {
            "get": {"tags": ["Templates"], "summary": "Get a template", "operationId": "getTemplate", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Templates"], "summary": "Delete a template", "operationId": "deleteTemplate", "responses": {"204": {"description": "No Content"}}}
        },
        "/workshops": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Workshops"], "summary": "List workshops", "operationId": "listWorkshops", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Workshops"], "summary": "Create a workshop", "operationId": "createWorkshop", "responses": {"201": {"description": "Created"}}}
        },
        "/workshops/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Workshops"], "summary": "Get a workshop", "operationId": "getWorkshop", "responses": {"200": {"description": "OK"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["Workshops"], "summary": "Update a workshop", "operationId": "updateWorkshop", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Workshops"], "summary": "Delete a workshop", "operationId": "deleteWorkshop", "responses": {"204": {"description": "No Content"}}}
        },
        "/workshops/{id}/insights": {"get": {"security": [{"BearerAuth": []}], "tags": ["Workshops"], "summary": "Insights of linked surveys", "operationId": "workshopInsights", "responses": {"200": {"description": "OK"}}}},
        "/workshops/{id}/schedule": {"post": {"security": [{"BearerAuth": []}], "tags": ["Workshops"], "summary": "Schedule a workshop", "operationId": "scheduleWorkshop", "responses": {"200": {"description": "OK"}}}},
        "/workshops/{id}/start": {"post": {"security": [{"BearerAuth": []}], "tags": ["Workshops"], "summary": "Start a scheduled workshop", "operationId": "startWorkshop", "responses": {"200": {"description": "OK"}}}},
        "/workshops/{id}/complete": {"post": {"security": [{"BearerAuth": []}], "tags": ["Workshops"], "summary": "Complete a running workshop", "operationId": "completeWorkshop", "responses": {"200": {"description": "OK"}}}},
        "/workshops/{id}/cancel": {"post": {"security": [{"BearerAuth": []}], "tags": ["Workshops"], "summary": "Cancel a workshop", "operationId": "cancelWorkshop", "responses": {"200": {"description": "OK"}}}},
        "/audit-logs": {"get": {"security": [{"BearerAuth": []}], "tags": ["Audit"], "summary": "List audit log entries", "operationId": "listAuditLogs", "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Survey Analytics API",
	Description:      "Surveys, eligibility-checked submissions, analytics with insights, templates and workshops.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
