package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves a Swagger UI page and the OpenAPI document for the public API.
// - GET /swagger/index.html  -> HTML page that loads the document
// - GET /swagger/doc.json    -> OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Linkage VA Hub API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Covers the routes clients call most; admin routes live under /api/admin.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "linkage-api", "version": "v1.0.0" },
  "components": { "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } } },
  "paths": {
    "/api/auth/register": {
      "post": { "summary": "Create an account", "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["email","password"],"properties":{"email":{"type":"string"},"password":{"type":"string"},"name":{"type":"string"},"role":{"type":"string","enum":["va","business"]}}}}}}, "responses": { "201": { "description": "account created, tokens returned" }, "409": { "description": "email taken" } } }
    },
    "/api/auth/login": {
      "post": { "summary": "Exchange credentials for tokens", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "tokens returned" }, "401": { "description": "invalid credentials" }, "403": { "description": "account suspended" } } }
    },
    "/api/auth/refresh": {
      "post": { "summary": "Rotate a refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "new token pair" }, "401": { "description": "invalid refresh" } } }
    },
    "/api/auth/logout": {
      "post": { "summary": "Revoke the refresh token and blacklist the access token", "responses": { "200": { "description": "logged out" } } }
    },
    "/api/me": {
      "get": { "summary": "Current user with linked profiles", "security": [{"bearer": []}], "responses": { "200": { "description": "user" }, "404": { "description": "account needs onboarding" } } }
    },
    "/api/vas": {
      "get": { "summary": "List public VA profiles", "parameters": [{"name":"page","in":"query","schema":{"type":"integer"}},{"name":"limit","in":"query","schema":{"type":"integer"}},{"name":"sort","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "paginated profiles" } } }
    },
    "/api/vas/search": {
      "get": { "summary": "Ranked VA search", "parameters": [{"name":"q","in":"query","schema":{"type":"string"}},{"name":"limit","in":"query","schema":{"type":"integer"}}], "responses": { "200": { "description": "ranked profiles; total counts all ranked candidates, count the returned page" } } }
    },
    "/api/vas/{identifier}": {
      "get": { "summary": "VA profile by id or slug", "parameters": [{"name":"identifier","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "profile" }, "404": { "description": "not found" } } }
    },
    "/api/businesses/me": {
      "get": { "summary": "Own business profile", "security": [{"bearer": []}], "responses": { "200": { "description": "profile" } } },
      "put": { "summary": "Create or update own business profile", "security": [{"bearer": []}], "responses": { "200": { "description": "updated" }, "201": { "description": "created" } } }
    },
    "/api/conversations": {
      "get": { "summary": "List own conversations", "security": [{"bearer": []}], "responses": { "200": { "description": "paginated conversations" } } }
    },
    "/api/conversations/start": {
      "post": { "summary": "Start a conversation or reuse the existing one", "security": [{"bearer": []}], "responses": { "201": { "description": "created" }, "200": { "description": "existing conversation" }, "403": { "description": "profile completion below threshold" } } }
    },
    "/api/conversations/{id}/messages": {
      "post": { "summary": "Send a message", "security": [{"bearer": []}], "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "201": { "description": "message sent" } } }
    },
    "/api/notifications": {
      "get": { "summary": "List notifications", "security": [{"bearer": []}], "responses": { "200": { "description": "notifications with unread count" } } }
    },
    "/api/profile/completion": {
      "get": { "summary": "Profile completion for the current user", "security": [{"bearer": []}], "responses": { "200": { "description": "completion breakdown" } } }
    },
    "/api/config/public": {
      "get": { "summary": "Public runtime settings", "responses": { "200": { "description": "settings" } } }
    },
    "/ws": {
      "get": { "summary": "Realtime event socket", "parameters": [{"name":"token","in":"query","schema":{"type":"string"}}], "responses": { "101": { "description": "switching protocols" }, "401": { "description": "invalid token" } } }
    }
  }
}`
