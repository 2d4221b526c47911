package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/hugh/clubhub/internal/api/validation"
	"github.com/hugh/clubhub/internal/database/models"
	"github.com/hugh/clubhub/pkg/crypto"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing. Each call
// gets its own named database so parallel tests do not share rows.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// A single connection keeps the shared-cache database alive and
	// serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { CleanupTestDB(t, db) })

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestCollege creates a college owning the given email domains
func CreateTestCollege(t *testing.T, db *gorm.DB, name string, domains ...string) *models.College {
	t.Helper()

	college := &models.College{Name: name}
	for _, d := range domains {
		if !validation.IsValidDomain(d) {
			t.Fatalf("invalid college domain %q", d)
		}
		college.Domains = append(college.Domains, models.CollegeDomain{Domain: d})
	}

	if err := db.Create(college).Error; err != nil {
		t.Fatalf("failed to create test college: %v", err)
	}

	return college
}

// CreateTestUser creates a user with a random email and no college
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithEmail(t, db, "test-"+uuid.New().String()[:8]+"@example.com")
}

// CreateTestUserWithEmail creates a user with the given email
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email: email,
		Name:  "Test User",
		Role:  models.RoleMember,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestOrganization creates an organization created at the given time.
// Pass a zero time to use now.
func CreateTestOrganization(t *testing.T, db *gorm.DB, name, description, category string, createdAt time.Time) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Base: models.Base{
			ID:        uuid.New(),
			CreatedAt: createdAt,
		},
		Name: name,
	}
	if description != "" {
		org.Description = &description
	}
	if category != "" {
		org.Category = &category
	}

	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}

	return org
}

// CreateTestMembership adds user to org with the given role label
func CreateTestMembership(t *testing.T, db *gorm.DB, userID, orgID uuid.UUID, role string) *models.Membership {
	t.Helper()

	m := &models.Membership{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
	}

	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}

	return m
}

// CreateTestSession stores a live session for user and returns the raw
// token to send as cookie or bearer value.
func CreateTestSession(t *testing.T, db *gorm.DB, user *models.User) string {
	t.Helper()

	token, err := crypto.NewToken(32)
	if err != nil {
		t.Fatalf("failed to generate session token: %v", err)
	}

	session := &models.Session{
		TokenHash: crypto.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("failed to create test session: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with a bearer session token
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
