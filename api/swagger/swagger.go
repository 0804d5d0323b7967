package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Dlool API",
        "description": "School homework backend: accounts, schools, classes and class signup requests",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Registration, login and the current account"},
        {"name": "Signup Requests", "description": "Requests to join an occupied class"},
        {"name": "Schools", "description": "School registry"},
        {"name": "Classes", "description": "Classes of a school"}
    ],
    "paths": {
        "/health": {
            "get": {"summary": "Liveness check", "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {"200": {"description": "Ready"}, "503": {"description": "Database unreachable"}}
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a user",
                "description": "Creates the account when the class has no members, otherwise files a pending signup request",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created or pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or username taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "School or class not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Incorrect username or password", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            },
            "patch": {
                "tags": ["Authentication"],
                "summary": "Update current user",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpdateMeRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid payload or username taken"}, "401": {"description": "Unauthorized"}}
            },
            "delete": {
                "tags": ["Authentication"],
                "summary": "Delete current user",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Deleted"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/auth/user/{id}": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Public user details",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/auth/requests": {
            "get": {
                "tags": ["Signup Requests"],
                "summary": "List signup requests for the caller's classes",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "status", "type": "string", "enum": ["pending", "accepted", "rejected", "p", "a", "r"]}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/requests/{id}": {
            "get": {
                "tags": ["Signup Requests"],
                "summary": "Get a signup request",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SignupRequest"}},
                    "400": {"description": "Invalid id"},
                    "404": {"description": "Request not found"}
                }
            }
        },
        "/auth/requests/{id}/sse": {
            "get": {
                "tags": ["Signup Requests"],
                "summary": "Stream signup request changes",
                "produces": ["text/event-stream"],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Event stream"}}
            }
        },
        "/auth/requests/{id}/accept": {
            "patch": {
                "tags": ["Signup Requests"],
                "summary": "Accept a signup request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Accepted"},
                    "400": {"description": "Invalid id or already processed"},
                    "403": {"description": "Caller is not a member of the class"},
                    "404": {"description": "Request not found"}
                }
            }
        },
        "/auth/requests/{id}/reject": {
            "patch": {
                "tags": ["Signup Requests"],
                "summary": "Reject a signup request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Rejected"},
                    "400": {"description": "Invalid id or already processed"},
                    "403": {"description": "Caller is not a member of the class"},
                    "404": {"description": "Request not found"}
                }
            }
        },
        "/schools": {
            "post": {
                "tags": ["Schools"],
                "summary": "Create school",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateSchoolRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid payload or unique name taken"}}
            }
        },
        "/schools/{uniqueName}": {
            "get": {
                "tags": ["Schools"],
                "summary": "Get school",
                "parameters": [{"in": "path", "name": "uniqueName", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/classes": {
            "post": {
                "tags": ["Classes"],
                "summary": "Create class",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateClassRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid payload or duplicate"}, "404": {"description": "School not found"}}
            }
        },
        "/classes/{school}": {
            "get": {
                "tags": ["Classes"],
                "summary": "List classes of a school",
                "parameters": [{"in": "path", "name": "school", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "School not found"}}
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["username", "name", "password", "school", "class"],
            "properties": {
                "username": {"type": "string"},
                "name": {"type": "string"},
                "password": {"type": "string"},
                "school": {"type": "string", "description": "School unique name"},
                "class": {"type": "string"},
                "email": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "UpdateMeRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateSchoolRequest": {
            "type": "object",
            "required": ["name", "uniqueName", "timezoneOffset"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "uniqueName": {"type": "string"},
                "timezoneOffset": {"type": "number"}
            }
        },
        "CreateClassRequest": {
            "type": "object",
            "required": ["name", "school"],
            "properties": {
                "name": {"type": "string"},
                "school": {"type": "string"}
            }
        },
        "SignupRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "userDetails": {
                    "type": "object",
                    "properties": {
                        "name": {"type": "string"},
                        "username": {"type": "string"},
                        "createdAt": {"type": "integer", "description": "Unix milliseconds"},
                        "school": {"type": "string"},
                        "acceptedClasses": {"type": "array", "items": {"type": "string"}}
                    }
                },
                "classId": {"type": "string"},
                "createdAt": {"type": "integer", "description": "Unix milliseconds"},
                "status": {"type": "string", "enum": ["pending", "accepted", "rejected"]},
                "processedBy": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {"field": {"type": "string"}, "message": {"type": "string"}}
                    }
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
