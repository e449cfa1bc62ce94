package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/tasktags/pkg/tasktags/auth"
	"github.com/mikepea/tasktags/pkg/tasktags/models"
	"github.com/mikepea/tasktags/pkg/tasktags/tags"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	return r
}

func createTestClient(t *testing.T, db *gorm.DB, name string, role models.ClientRole) *models.APIClient {
	client, _, err := auth.CreateClient(db, name, role)
	if err != nil {
		t.Fatalf("Failed to create test client: %v", err)
	}
	return client
}

func asAdmin(clientID uint, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextKeyClientID, clientID)
		c.Set(auth.ContextKeyRole, string(models.ClientRoleAdmin))
		handler(c)
	}
}

func TestListClients(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(db)
	h := NewHandler(db)

	admin := createTestClient(t, db, "admin", models.ClientRoleAdmin)
	createTestClient(t, db, "app", models.ClientRoleClient)

	r.GET("/admin/clients", asAdmin(admin.ID, h.ListClients))

	req := httptest.NewRequest("GET", "/admin/clients", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var clients []ClientResponse
	json.Unmarshal(w.Body.Bytes(), &clients)
	if len(clients) != 2 {
		t.Errorf("Expected 2 clients, got %d", len(clients))
	}

	req = httptest.NewRequest("GET", "/admin/clients?role=client", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	json.Unmarshal(w.Body.Bytes(), &clients)
	if len(clients) != 1 || clients[0].Name != "app" {
		t.Errorf("Expected only 'app' for role filter, got %+v", clients)
	}
}

func TestCreateClient(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(db)
	h := NewHandler(db)
	admin := createTestClient(t, db, "admin", models.ClientRoleAdmin)

	r.POST("/admin/clients", asAdmin(admin.ID, h.CreateClient))

	body, _ := json.Marshal(CreateClientRequest{Name: "sync", Role: "client"})
	req := httptest.NewRequest("POST", "/admin/clients", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created CreateClientResponse
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.Secret == "" {
		t.Error("Expected the secret to be returned once")
	}

	var stored models.APIClient
	db.Where("name = ?", "sync").First(&stored)
	if !auth.CheckSecret(created.Secret, stored.SecretHash) {
		t.Error("Returned secret does not match stored hash")
	}

	// Duplicate name
	req = httptest.NewRequest("POST", "/admin/clients", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

func TestCreateClientInvalidRole(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(db)
	h := NewHandler(db)

	r.POST("/admin/clients", asAdmin(1, h.CreateClient))

	body, _ := json.Marshal(CreateClientRequest{Name: "sync", Role: "root"})
	req := httptest.NewRequest("POST", "/admin/clients", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestDeleteClient(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(db)
	h := NewHandler(db)

	admin := createTestClient(t, db, "admin", models.ClientRoleAdmin)
	app := createTestClient(t, db, "app", models.ClientRoleClient)

	r.DELETE("/admin/clients/:id", asAdmin(admin.ID, h.DeleteClient))

	req := httptest.NewRequest("DELETE", "/admin/clients/2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Unscoped().Model(&models.APIClient{}).Where("id = ?", app.ID).Count(&count)
	if count != 0 {
		t.Error("Expected client row to be removed")
	}

	req = httptest.NewRequest("DELETE", "/admin/clients/2", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for deleted client, got %d", w.Code)
	}
}

func TestDeleteClientCannotDeleteSelf(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(db)
	h := NewHandler(db)

	admin := createTestClient(t, db, "admin", models.ClientRoleAdmin)

	r.DELETE("/admin/clients/:id", asAdmin(admin.ID, h.DeleteClient))

	req := httptest.NewRequest("DELETE", "/admin/clients/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(db)
	h := NewHandler(db)

	admin := createTestClient(t, db, "admin", models.ClientRoleAdmin)

	now := time.Now()
	active := models.Task{Title: "active"}
	done := models.Task{Title: "done", CompletedAt: &now}
	db.Create(&active)
	db.Create(&done)

	db.Create(&models.TagData{UUID: "t1", Name: "Job"})
	db.Create(&[]models.Metadata{
		{TaskID: active.ID, Key: tags.LinkKey, Value1: "Job", Value2: "t1"},
		// drifted
		{TaskID: done.ID, Key: tags.LinkKey, Value1: "work", Value2: "t1"},
		// orphan
		{TaskID: done.ID, Key: tags.LinkKey, Value1: "ghost", Value2: "gone"},
		// deleted
		{TaskID: active.ID, Key: tags.LinkKey, Value1: "Job", Value2: "t1", DeletionDate: now.UnixMilli()},
		{TaskID: active.ID, Key: "other-key", Value1: "not a tag", Value2: "t1"},
	})

	r.GET("/admin/stats", asAdmin(admin.ID, h.GetStats))

	req := httptest.NewRequest("GET", "/admin/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats StatsResponse
	json.Unmarshal(w.Body.Bytes(), &stats)

	if stats.TotalTasks != 2 {
		t.Errorf("Expected 2 tasks, got %d", stats.TotalTasks)
	}
	if stats.CompletedTasks != 1 {
		t.Errorf("Expected 1 completed task, got %d", stats.CompletedTasks)
	}
	if stats.TotalTags != 1 {
		t.Errorf("Expected 1 tag, got %d", stats.TotalTags)
	}
	if stats.LiveLinks != 3 {
		t.Errorf("Expected 3 live links, got %d", stats.LiveLinks)
	}
	if stats.DeletedLinks != 1 {
		t.Errorf("Expected 1 deleted link, got %d", stats.DeletedLinks)
	}
	if stats.OrphanLinks != 1 {
		t.Errorf("Expected 1 orphan link, got %d", stats.OrphanLinks)
	}
	if stats.DriftedLinks != 1 {
		t.Errorf("Expected 1 drifted link, got %d", stats.DriftedLinks)
	}
	if stats.APIClients != 1 {
		t.Errorf("Expected 1 API client, got %d", stats.APIClients)
	}
}

func TestDeletedClientNameCanBeReused(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(db)
	h := NewHandler(db)

	admin := createTestClient(t, db, "admin", models.ClientRoleAdmin)
	app := createTestClient(t, db, "app", models.ClientRoleClient)

	r.DELETE("/admin/clients/:id", asAdmin(admin.ID, h.DeleteClient))
	r.POST("/admin/clients", asAdmin(admin.ID, h.CreateClient))

	req := httptest.NewRequest("DELETE", "/admin/clients/"+strconv.FormatUint(uint64(app.ID), 10), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	body, _ := json.Marshal(CreateClientRequest{Name: "app", Role: "client"})
	req = httptest.NewRequest("POST", "/admin/clients", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201 when reusing a deleted name, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetStatsFailsOnQueryError(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(db)
	h := NewHandler(db)

	if err := db.Migrator().DropTable(&models.TagData{}); err != nil {
		t.Fatalf("Failed to drop tag_data: %v", err)
	}

	r.GET("/admin/stats", asAdmin(1, h.GetStats))

	req := httptest.NewRequest("GET", "/admin/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d: %s", w.Code, w.Body.String())
	}
}
