package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foldly/foldly/pkg/foldly/auth"
	"github.com/foldly/foldly/pkg/foldly/files"
	"github.com/foldly/foldly/pkg/foldly/links"
	"github.com/foldly/foldly/pkg/foldly/models"
	"github.com/foldly/foldly/pkg/foldly/permissions"
	"github.com/foldly/foldly/pkg/foldly/public"
	"github.com/foldly/foldly/pkg/foldly/ratelimit"
	"github.com/foldly/foldly/pkg/foldly/storage"
	"github.com/foldly/foldly/pkg/foldly/workspaces"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// setupFullServer creates a Gin engine with all routes registered
// This mirrors the setup in cmd/foldly-server/main.go
func setupFullServer(t *testing.T, db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	store := storage.NewLocal(t.TempDir(), "http://test.local/files")
	rl := ratelimit.New()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "foldly",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Public upload-page routes
		publicHandler := public.NewHandler(db, store)
		publicHandler.RegisterRoutes(api.Group(""), rl)

		// Protected routes (JWT required)
		protected := api.Group("", auth.AuthMiddleware())

		workspacesHandler := workspaces.NewHandler(db)
		workspacesHandler.RegisterRoutes(protected)

		linksHandler := links.NewHandler(db, store)
		linksHandler.RegisterRoutes(protected, rl)

		permissionsHandler := permissions.NewHandler(db)
		permissionsHandler.RegisterRoutes(protected, rl)

		filesHandler := files.NewHandler(db)
		filesHandler.RegisterRoutes(protected, rl)
	}

	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func doJSON(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewBuffer(b)
	}
	req, _ := http.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// TestServerStartup verifies that all routes can be registered without conflicts
// This test would fail on route parameter conflicts (like /links/:id vs /links/slug)
func TestServerStartup(t *testing.T) {
	db := setupTestDB(t)

	// This will panic if there are route conflicts
	router := setupFullServer(t, db)

	if router == nil {
		t.Fatal("Expected router to be created")
	}
}

// TestHealthEndpoint verifies the health endpoint responds correctly
func TestHealthEndpoint(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(t, db)

	req, _ := http.NewRequest("GET", "/health", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}
}

// TestAPIHealthEndpoint verifies the API health endpoint responds correctly
func TestAPIHealthEndpoint(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(t, db)

	req, _ := http.NewRequest("GET", "/api/health", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}
}

// TestProtectedEndpointsRequireAuth verifies that protected endpoints return 401 without auth
func TestProtectedEndpointsRequireAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(t, db)

	protectedEndpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/workspaces/me"},
		{"POST", "/api/workspaces"},
		{"GET", "/api/links"},
		{"POST", "/api/links"},
		{"GET", "/api/files"},
	}

	for _, endpoint := range protectedEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			resp := httptest.NewRecorder()

			router.ServeHTTP(resp, req)

			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401 for %s %s, got %d", endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestPublicEndpointsNoAuth verifies that public endpoints don't require auth
func TestPublicEndpointsNoAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(t, db)

	publicEndpoints := []struct {
		method       string
		path         string
		expectedCode int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/health", http.StatusOK},
		{"POST", "/api/auth/register", http.StatusBadRequest}, // Bad request (no body), but not 401
		{"POST", "/api/auth/login", http.StatusBadRequest},    // Bad request (no body), but not 401
		{"GET", "/api/public/links/nonexistent-slug", http.StatusNotFound},
	}

	for _, endpoint := range publicEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			resp := httptest.NewRecorder()

			router.ServeHTTP(resp, req)

			if resp.Code != endpoint.expectedCode {
				t.Errorf("Expected status %d for %s %s, got %d", endpoint.expectedCode, endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestLinkLifecycle walks the whole flow: register, onboard, create a link,
// upload anonymously through it, grant a permission, then delete the link and
// check that the uploaded file survives as an orphan.
func TestLinkLifecycle(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(t, db)

	// Register and extract the token
	resp := doJSON(router, "POST", "/api/auth/register", "", gin.H{
		"email":    "founder@example.com",
		"password": "password123",
		"name":     "Founder",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Register failed: %d %s", resp.Code, resp.Body.String())
	}
	var env envelope
	json.Unmarshal(resp.Body.Bytes(), &env)
	var authData struct {
		Token string `json:"token"`
	}
	json.Unmarshal(env.Data, &authData)
	if authData.Token == "" {
		t.Fatal("Expected a token from register")
	}
	token := authData.Token

	// Links are unavailable before onboarding
	resp = doJSON(router, "POST", "/api/links", token, gin.H{"name": "Tax Documents", "slug": "tax-docs"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 before onboarding, got %d", resp.Code)
	}

	// Onboard
	resp = doJSON(router, "POST", "/api/workspaces", token, gin.H{"name": "Founder Workspace"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Workspace creation failed: %d %s", resp.Code, resp.Body.String())
	}

	// Create a public link
	resp = doJSON(router, "POST", "/api/links", token, gin.H{
		"name":      "Tax Documents",
		"slug":      "tax-docs",
		"is_public": true,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Link creation failed: %d %s", resp.Code, resp.Body.String())
	}
	json.Unmarshal(resp.Body.Bytes(), &env)
	var link struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	json.Unmarshal(env.Data, &link)

	// Anonymous upload through the public slug
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("uploader_name", "Anon Client")
	fw, _ := w.CreateFormFile("file", "w2.pdf")
	io.WriteString(fw, "tax-form-contents")
	w.Close()

	req, _ := http.NewRequest("POST", "/api/public/links/"+link.Slug+"/files", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Public upload failed: %d %s", rec.Code, rec.Body.String())
	}

	// Grant a collaborator permission
	resp = doJSON(router, "POST", "/api/links/"+link.ID+"/permissions", token, gin.H{
		"email": "accountant@example.com",
		"role":  "editor",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Permission grant failed: %d %s", resp.Code, resp.Body.String())
	}

	// Delete the link
	resp = doJSON(router, "DELETE", "/api/links/"+link.ID, token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Link deletion failed: %d %s", resp.Code, resp.Body.String())
	}

	// The slug is gone from the public surface
	resp = doJSON(router, "GET", "/api/public/links/"+link.Slug, "", nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after deletion, got %d", resp.Code)
	}

	// The uploaded file survives, detached from the link
	resp = doJSON(router, "GET", "/api/files?orphaned=true", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("File listing failed: %d", resp.Code)
	}
	json.Unmarshal(resp.Body.Bytes(), &env)
	var orphans []struct {
		Name string `json:"name"`
	}
	json.Unmarshal(env.Data, &orphans)
	if len(orphans) != 1 || orphans[0].Name != "w2.pdf" {
		t.Errorf("Expected the uploaded file to survive as an orphan, got %+v", orphans)
	}

	// The slug can be claimed again
	resp = doJSON(router, "POST", "/api/links", token, gin.H{"name": "Tax Documents v2", "slug": "tax-docs"})
	if resp.Code != http.StatusCreated {
		t.Errorf("Expected freed slug to be reusable, got %d: %s", resp.Code, resp.Body.String())
	}
}
