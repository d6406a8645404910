package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
	return body
}

func TestSuccessResponse(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SuccessResponse(c, http.StatusCreated, "Created", map[string]int{"count": 2})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["success"] != true || body["message"] != "Created" {
		t.Errorf("body = %v", body)
	}
	if data := body["data"].(map[string]any); data["count"] != float64(2) {
		t.Errorf("data = %v", data)
	}
	if _, ok := body["error"]; ok {
		t.Error("error key present on success")
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorResponse(c, http.StatusBadRequest, "Invalid reading", []string{"speed"})

	if w.Code != http.StatusBadRequest || !c.IsAborted() {
		t.Fatalf("status = %d aborted = %v", w.Code, c.IsAborted())
	}
	body := decode(t, w)
	if body["success"] != false || body["error"] != "Invalid reading" {
		t.Errorf("body = %v", body)
	}
	if details := body["details"].([]any); len(details) != 1 || details[0] != "speed" {
		t.Errorf("details = %v", details)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	ErrorResponse(c, http.StatusNotFound, "Device not found")
	if _, ok := decode(t, w)["details"]; ok {
		t.Error("details present without a value")
	}
}
