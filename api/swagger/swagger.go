package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Edu Certificate API",
        "description": "Certificate eligibility, issuance, revocation, rendering and public verification",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
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
            "name": "Verification",
            "description": "Public certificate lookup"
        },
        {
            "name": "Eligibility",
            "description": "Certification thresholds"
        },
        {
            "name": "Certificates",
            "description": "Issuance and revocation"
        },
        {
            "name": "Downloads",
            "description": "Rendered documents and signed links"
        },
        {
            "name": "Templates",
            "description": "Certificate layouts"
        },
        {
            "name": "Observability",
            "description": "Metrics"
        }
    ],
    "paths": {
        "/verify/{number}": {
            "get": {
                "tags": [
                    "Verification"
                ],
                "summary": "Verify a certificate number",
                "parameters": [
                    {
                        "name": "number",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/certificates/files/{token}": {
            "get": {
                "tags": [
                    "Downloads"
                ],
                "summary": "Download a certificate through a signed link",
                "produces": [
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "token",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "PDF document"
                    },
                    "403": {
                        "description": "Invalid or expired link",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/courses/{courseId}/eligibility/{studentId}": {
            "get": {
                "tags": [
                    "Eligibility"
                ],
                "summary": "Evaluate certificate eligibility",
                "parameters": [
                    {
                        "name": "courseId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "studentId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
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
        "/certificates/generate": {
            "post": {
                "tags": [
                    "Certificates"
                ],
                "summary": "Generate a certificate after an eligibility check",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/GenerateCertificateRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "200": {
                        "description": "Existing certificate returned",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "Not eligible",
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
        "/certificates/issue": {
            "post": {
                "tags": [
                    "Certificates"
                ],
                "summary": "Issue a certificate directly",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/IssueCertificateRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "200": {
                        "description": "Existing certificate returned",
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
        "/certificates/stats": {
            "get": {
                "tags": [
                    "Certificates"
                ],
                "summary": "Certificate statistics",
                "parameters": [
                    {
                        "name": "courseId",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string"
                    }
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
        "/certificates/{id}": {
            "get": {
                "tags": [
                    "Certificates"
                ],
                "summary": "Get a certificate",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
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
        "/certificates/{id}/history": {
            "get": {
                "tags": [
                    "Certificates"
                ],
                "summary": "Certificate audit history",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
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
        "/certificates/{id}/revoke": {
            "put": {
                "tags": [
                    "Certificates"
                ],
                "summary": "Revoke a certificate",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RevokeCertificateRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Already revoked or expired",
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
        "/certificates/{id}/download-data": {
            "get": {
                "tags": [
                    "Downloads"
                ],
                "summary": "Certificate, template and QR data for rendering",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
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
        "/certificates/{id}/download": {
            "get": {
                "tags": [
                    "Downloads"
                ],
                "summary": "Download the rendered certificate PDF",
                "produces": [
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "PDF document"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/certificates/{id}/download-link": {
            "post": {
                "tags": [
                    "Downloads"
                ],
                "summary": "Create a signed download link",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
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
        "/students/{id}/certificates": {
            "get": {
                "tags": [
                    "Certificates"
                ],
                "summary": "List a student's certificates",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
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
        "/courses/{courseId}/certificates": {
            "get": {
                "tags": [
                    "Certificates"
                ],
                "summary": "List a course's certificates",
                "parameters": [
                    {
                        "name": "courseId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer"
                    }
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
        "/courses/{courseId}/certificates/export": {
            "get": {
                "tags": [
                    "Certificates"
                ],
                "summary": "Export a course's certificates as CSV",
                "produces": [
                    "text/csv"
                ],
                "parameters": [
                    {
                        "name": "courseId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "CSV roster"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/templates": {
            "get": {
                "tags": [
                    "Templates"
                ],
                "summary": "List certificate templates",
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
            "post": {
                "tags": [
                    "Templates"
                ],
                "summary": "Create a certificate template",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/TemplateRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
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
        "/templates/{id}": {
            "get": {
                "tags": [
                    "Templates"
                ],
                "summary": "Get a certificate template",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
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
            "put": {
                "tags": [
                    "Templates"
                ],
                "summary": "Update a certificate template",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/TemplateRequest"
                        }
                    }
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
            "delete": {
                "tags": [
                    "Templates"
                ],
                "summary": "Delete a certificate template",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "Deleted"
                    },
                    "409": {
                        "description": "Template in use",
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
        "/metrics/summary": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Certificate service metrics snapshot",
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
        }
    },
    "definitions": {
        "Certificate": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "certificate_number": {
                    "type": "string"
                },
                "student_id": {
                    "type": "string"
                },
                "course_id": {
                    "type": "string"
                },
                "template_id": {
                    "type": "string"
                },
                "student_name": {
                    "type": "string"
                },
                "student_email": {
                    "type": "string"
                },
                "course_title": {
                    "type": "string"
                },
                "course_category": {
                    "type": "string"
                },
                "course_level": {
                    "type": "string"
                },
                "duration_hours": {
                    "type": "integer"
                },
                "instructor_name": {
                    "type": "string"
                },
                "final_grade": {
                    "type": "number"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "issued",
                        "active",
                        "revoked",
                        "expired"
                    ]
                },
                "issued_at": {
                    "type": "string"
                },
                "expires_at": {
                    "type": "string"
                },
                "revoked_at": {
                    "type": "string"
                },
                "issued_by": {
                    "type": "string"
                },
                "metadata": {
                    "type": "object"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "PublicCertificateView": {
            "type": "object",
            "properties": {
                "certificate_number": {
                    "type": "string"
                },
                "student_name": {
                    "type": "string"
                },
                "course_title": {
                    "type": "string"
                },
                "course_category": {
                    "type": "string"
                },
                "course_level": {
                    "type": "string"
                },
                "duration_hours": {
                    "type": "integer"
                },
                "instructor_name": {
                    "type": "string"
                },
                "final_grade": {
                    "type": "number"
                },
                "status": {
                    "type": "string"
                },
                "issued_at": {
                    "type": "string"
                },
                "expires_at": {
                    "type": "string"
                }
            }
        },
        "VerifyCertificateResponse": {
            "type": "object",
            "properties": {
                "valid": {
                    "type": "boolean"
                },
                "certificate": {
                    "$ref": "#/definitions/PublicCertificateView"
                },
                "error": {
                    "type": "string"
                }
            }
        },
        "GenerateCertificateRequest": {
            "type": "object",
            "properties": {
                "student_id": {
                    "type": "string"
                },
                "course_id": {
                    "type": "string"
                },
                "template_id": {
                    "type": "string"
                },
                "automatic": {
                    "type": "boolean"
                },
                "override": {
                    "type": "boolean"
                }
            }
        },
        "IssueCertificateRequest": {
            "type": "object",
            "properties": {
                "student_id": {
                    "type": "string"
                },
                "course_id": {
                    "type": "string"
                },
                "template_id": {
                    "type": "string"
                },
                "student_name": {
                    "type": "string"
                },
                "student_email": {
                    "type": "string"
                },
                "course_title": {
                    "type": "string"
                },
                "instructor_name": {
                    "type": "string"
                },
                "final_grade": {
                    "type": "number"
                },
                "issued_at": {
                    "type": "string"
                },
                "valid_for_days": {
                    "type": "integer"
                },
                "metadata": {
                    "type": "object"
                }
            }
        },
        "RevokeCertificateRequest": {
            "type": "object",
            "properties": {
                "reason": {
                    "type": "string"
                }
            }
        },
        "FieldStyle": {
            "type": "object",
            "properties": {
                "x": {
                    "type": "number"
                },
                "y": {
                    "type": "number"
                },
                "size": {
                    "type": "number"
                },
                "color": {
                    "type": "string"
                },
                "font": {
                    "type": "string"
                }
            }
        },
        "TemplateConfig": {
            "type": "object",
            "description": "Flat map of field name to FieldStyle; background_image holds an optional image URL",
            "properties": {
                "background_image": {
                    "type": "string"
                }
            },
            "additionalProperties": {
                "$ref": "#/definitions/FieldStyle"
            }
        },
        "TemplateRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "category": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "preview_image": {
                    "type": "string"
                },
                "template_config": {
                    "$ref": "#/definitions/TemplateConfig"
                },
                "is_default": {
                    "type": "boolean"
                }
            }
        },
        "EligibilityResult": {
            "type": "object",
            "properties": {
                "student_id": {
                    "type": "string"
                },
                "course_id": {
                    "type": "string"
                },
                "is_eligible": {
                    "type": "boolean"
                },
                "checks": {
                    "type": "object"
                },
                "total_classes": {
                    "type": "integer"
                },
                "completed_classes": {
                    "type": "integer"
                },
                "class_progress_percentage": {
                    "type": "number"
                },
                "overall_grade": {
                    "type": "number"
                },
                "final_exam_score": {
                    "type": "number"
                },
                "evaluations": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                },
                "existing_certificate": {
                    "$ref": "#/definitions/Certificate"
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
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
                "pagination": {
                    "$ref": "#/definitions/Pagination"
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
