package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// Validation paths run before any database access, so they are testable
// without a running mongod.
func validationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", "doc-1")
	})
	router.GET("/messages", GetMessages)
	router.GET("/doctors/search", SearchDoctors)
	router.GET("/patients/search", SearchPatients)
	return router
}

func do(t *testing.T, router *gin.Engine, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v (%s)", err, w.Body.String())
	}
	return body.Message
}

func TestGetMessagesRequiresDoctorAndPatient(t *testing.T) {
	router := validationRouter()

	for _, target := range []string{
		"/messages",
		"/messages?doctorId=doc-2",
		"/messages?patientId=pat-1",
	} {
		w := do(t, router, target)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", target, w.Code)
		}
		if msg := errorMessage(t, w); msg == "" {
			t.Fatalf("%s: missing error message", target)
		}
	}
}

func TestGetMessagesRejectsBadLimit(t *testing.T) {
	router := validationRouter()

	for _, limit := range []string{"abc", "0", "-5"} {
		w := do(t, router, "/messages?doctorId=doc-2&patientId=pat-1&limit="+limit)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s: status = %d, want 400", limit, w.Code)
		}
	}
}

func TestGetMessagesRejectsBadCursor(t *testing.T) {
	router := validationRouter()

	w := do(t, router, "/messages?doctorId=doc-2&patientId=pat-1&cursor=not-an-objectid")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if msg := errorMessage(t, w); msg != "invalid cursor" {
		t.Fatalf("message = %q, want %q", msg, "invalid cursor")
	}
}

func TestSearchRequiresTerm(t *testing.T) {
	router := validationRouter()

	for _, target := range []string{"/doctors/search", "/patients/search"} {
		w := do(t, router, target)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", target, w.Code)
		}
	}
}
