package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Portal API",
        "description": "Attendance, forums, grades and meetings for students and faculty.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Authentication"
        },
        {
            "name": "Users"
        },
        {
            "name": "Attendance"
        },
        {
            "name": "Forums"
        },
        {
            "name": "Grades"
        },
        {
            "name": "Meetings"
        },
        {
            "name": "Events"
        }
    ],
    "paths": {
        "/auth/signup": {
            "post": {
                "summary": "Register an account",
                "tags": [
                    "Authentication"
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Email already registered",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "429": {
                        "description": "Rate limited",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SignupRequest"
                        }
                    }
                ]
            }
        },
        "/auth/login": {
            "post": {
                "summary": "Authenticate user",
                "tags": [
                    "Authentication"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Invalid credentials",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "429": {
                        "description": "Rate limited",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/LoginRequest"
                        }
                    }
                ]
            }
        },
        "/auth/refresh": {
            "post": {
                "summary": "Rotate refresh token",
                "tags": [
                    "Authentication"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Invalid refresh token",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RefreshTokenRequest"
                        }
                    }
                ]
            }
        },
        "/auth/logout": {
            "post": {
                "summary": "Revoke refresh token",
                "tags": [
                    "Authentication"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RefreshTokenRequest"
                        }
                    }
                ]
            }
        },
        "/auth/change-password": {
            "post": {
                "summary": "Change password",
                "tags": [
                    "Authentication"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ChangePasswordRequest"
                        }
                    }
                ]
            }
        },
        "/auth/me": {
            "get": {
                "summary": "Current user",
                "tags": [
                    "Authentication"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/users/me": {
            "get": {
                "summary": "Own profile",
                "tags": [
                    "Users"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "patch": {
                "summary": "Update display name",
                "tags": [
                    "Users"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateProfileRequest"
                        }
                    }
                ]
            }
        },
        "/faculty": {
            "get": {
                "summary": "Faculty directory",
                "tags": [
                    "Users"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "query",
                        "name": "q",
                        "type": "string"
                    }
                ]
            }
        },
        "/students": {
            "get": {
                "summary": "Student directory",
                "tags": [
                    "Users"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Faculty only",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "query",
                        "name": "q",
                        "type": "string"
                    }
                ]
            }
        },
        "/attendance": {
            "put": {
                "summary": "Mark attendance",
                "tags": [
                    "Attendance"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Faculty only",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Student not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/MarkAttendanceRequest"
                        }
                    }
                ]
            },
            "get": {
                "summary": "List attendance",
                "tags": [
                    "Attendance"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "query",
                        "name": "course",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "status",
                        "type": "string",
                        "enum": [
                            "present",
                            "absent"
                        ]
                    },
                    {
                        "in": "query",
                        "name": "range",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "from",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "to",
                        "type": "string"
                    }
                ]
            }
        },
        "/attendance/summary": {
            "get": {
                "summary": "Attendance statistics",
                "tags": [
                    "Attendance"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "query",
                        "name": "course",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "status",
                        "type": "string",
                        "enum": [
                            "present",
                            "absent"
                        ]
                    },
                    {
                        "in": "query",
                        "name": "range",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "from",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "to",
                        "type": "string"
                    }
                ]
            }
        },
        "/attendance/export": {
            "get": {
                "summary": "Export attendance",
                "tags": [
                    "Attendance"
                ],
                "responses": {
                    "400": {
                        "description": "Unsupported format",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "query",
                        "name": "format",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "course",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "status",
                        "type": "string",
                        "enum": [
                            "present",
                            "absent"
                        ]
                    },
                    {
                        "in": "query",
                        "name": "range",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "from",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "to",
                        "type": "string"
                    }
                ],
                "produces": [
                    "text/csv",
                    "application/pdf"
                ]
            }
        },
        "/forums": {
            "get": {
                "summary": "List active forums",
                "tags": [
                    "Forums"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "query",
                        "name": "scope",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "q",
                        "type": "string"
                    }
                ]
            },
            "post": {
                "summary": "Open a forum",
                "tags": [
                    "Forums"
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateForumRequest"
                        }
                    }
                ]
            }
        },
        "/forums/archived": {
            "get": {
                "summary": "List archived forums",
                "tags": [
                    "Forums"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "query",
                        "name": "scope",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "q",
                        "type": "string"
                    }
                ]
            }
        },
        "/forums/{id}": {
            "get": {
                "summary": "Get a forum",
                "tags": [
                    "Forums"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/forums/{id}/archive": {
            "post": {
                "summary": "Archive a forum",
                "tags": [
                    "Forums"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "403": {
                        "description": "Not the creator",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/forums/{id}/unarchive": {
            "post": {
                "summary": "Restore a forum",
                "tags": [
                    "Forums"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "403": {
                        "description": "Not the creator",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/forums/{id}/comments": {
            "get": {
                "summary": "List comments",
                "tags": [
                    "Forums"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ]
            },
            "post": {
                "summary": "Reply to a forum",
                "tags": [
                    "Forums"
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/PostCommentRequest"
                        }
                    }
                ]
            }
        },
        "/grades": {
            "put": {
                "summary": "Record an assessment score",
                "tags": [
                    "Grades"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Faculty only",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SubmitGradeRequest"
                        }
                    }
                ]
            },
            "get": {
                "summary": "List grades",
                "tags": [
                    "Grades"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "query",
                        "name": "course",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "q",
                        "type": "string"
                    }
                ]
            }
        },
        "/courses": {
            "get": {
                "summary": "List course names",
                "tags": [
                    "Grades"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/events": {
            "get": {
                "summary": "List calendar events",
                "tags": [
                    "Events"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "query",
                        "name": "q",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "category",
                        "type": "string",
                        "enum": [
                            "all",
                            "academic",
                            "cultural",
                            "sports",
                            "workshop"
                        ]
                    },
                    {
                        "in": "query",
                        "name": "date",
                        "type": "string"
                    }
                ]
            },
            "post": {
                "summary": "Publish an event",
                "description": "Faculty only.",
                "tags": [
                    "Events"
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Faculty only",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateEventRequest"
                        }
                    }
                ]
            }
        },
        "/meetings": {
            "post": {
                "summary": "Schedule a meeting",
                "tags": [
                    "Meetings"
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "payload",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateMeetingRequest"
                        }
                    }
                ]
            },
            "get": {
                "summary": "List own meetings",
                "tags": [
                    "Meetings"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/meetings/{id}": {
            "delete": {
                "summary": "Delete a meeting",
                "tags": [
                    "Meetings"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "403": {
                        "description": "Not the creator",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        }
    },
    "definitions": {
        "SignupRequest": {
            "type": "object",
            "required": [
                "email",
                "password",
                "full_name",
                "role"
            ],
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string",
                    "minLength": 6
                },
                "full_name": {
                    "type": "string"
                },
                "role": {
                    "type": "string",
                    "enum": [
                        "student",
                        "faculty"
                    ]
                }
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": [
                "email",
                "password"
            ],
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                }
            }
        },
        "RefreshTokenRequest": {
            "type": "object",
            "required": [
                "refresh_token"
            ],
            "properties": {
                "refresh_token": {
                    "type": "string"
                }
            }
        },
        "ChangePasswordRequest": {
            "type": "object",
            "required": [
                "old_password",
                "new_password"
            ],
            "properties": {
                "old_password": {
                    "type": "string"
                },
                "new_password": {
                    "type": "string",
                    "minLength": 6
                }
            }
        },
        "UpdateProfileRequest": {
            "type": "object",
            "required": [
                "full_name"
            ],
            "properties": {
                "full_name": {
                    "type": "string"
                }
            }
        },
        "MarkAttendanceRequest": {
            "type": "object",
            "required": [
                "student_id",
                "course_name",
                "date",
                "status"
            ],
            "properties": {
                "student_id": {
                    "type": "string"
                },
                "course_name": {
                    "type": "string"
                },
                "date": {
                    "type": "string",
                    "example": "2024-03-14"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "present",
                        "absent"
                    ]
                }
            }
        },
        "CreateForumRequest": {
            "type": "object",
            "required": [
                "title"
            ],
            "properties": {
                "title": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                }
            }
        },
        "PostCommentRequest": {
            "type": "object",
            "required": [
                "comment"
            ],
            "properties": {
                "comment": {
                    "type": "string"
                }
            }
        },
        "SubmitGradeRequest": {
            "type": "object",
            "required": [
                "student_id",
                "course_name",
                "assessment",
                "score"
            ],
            "properties": {
                "student_id": {
                    "type": "string"
                },
                "course_name": {
                    "type": "string"
                },
                "assessment": {
                    "type": "string",
                    "enum": [
                        "assignments",
                        "quizzes",
                        "exams"
                    ]
                },
                "score": {
                    "type": "number",
                    "minimum": 0,
                    "maximum": 100
                }
            }
        },
        "CreateMeetingRequest": {
            "type": "object",
            "required": [
                "title",
                "date",
                "time"
            ],
            "properties": {
                "title": {
                    "type": "string"
                },
                "date": {
                    "type": "string",
                    "example": "2024-05-02"
                },
                "time": {
                    "type": "string",
                    "example": "14:30"
                },
                "duration_minutes": {
                    "type": "integer",
                    "default": 60
                },
                "participants": {
                    "type": "string"
                },
                "agenda": {
                    "type": "string"
                }
            }
        },
        "CreateEventRequest": {
            "type": "object",
            "required": [
                "title",
                "category",
                "date"
            ],
            "properties": {
                "title": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "location": {
                    "type": "string"
                },
                "category": {
                    "type": "string",
                    "enum": [
                        "academic",
                        "cultural",
                        "sports",
                        "workshop"
                    ]
                },
                "status": {
                    "type": "string",
                    "default": "upcoming",
                    "enum": [
                        "upcoming",
                        "ongoing",
                        "completed",
                        "cancelled"
                    ]
                },
                "date": {
                    "type": "string",
                    "example": "2024-05-02"
                },
                "time": {
                    "type": "string",
                    "example": "18:30"
                },
                "image_url": {
                    "type": "string"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
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
