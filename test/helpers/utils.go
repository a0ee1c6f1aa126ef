package helpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"journal-backend/internal/models"
	"journal-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// TestJWTSecret signs every token minted by the helpers.
const TestJWTSecret = "test-jwt-secret-for-handlers-0123456789"

// NewTestJWTManager returns the manager matching TestJWTSecret.
func NewTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager(TestJWTSecret, time.Hour)
}

// BearerToken mints an access token for user.
func BearerToken(t *testing.T, manager *auth.JWTManager, user *models.User) string {
	t.Helper()
	token, err := manager.GenerateToken(user.ID, user.Username, user.Email, user.Role)
	require.NoError(t, err)
	return "Bearer " + token
}

// PerformRequest sends a request through router. body is JSON encoded unless
// it is already a []byte. bearer may be empty.
func PerformRequest(t *testing.T, router http.Handler, method, url string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

// DecodeJSON unmarshals the recorded body into a generic map.
func DecodeJSON(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out), "body: %s", recorder.Body.String())
	return out
}

// AssertErrorResponse checks the status and the enveloped error code.
func AssertErrorResponse(t *testing.T, recorder *httptest.ResponseRecorder, expectedStatus int, expectedErrorCode string) {
	t.Helper()
	require.Equal(t, expectedStatus, recorder.Code, "body: %s", recorder.Body.String())

	body := DecodeJSON(t, recorder)
	require.Equal(t, false, body["success"])
	errDetail, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "expected error object, got %v", body["error"])
	require.Equal(t, expectedErrorCode, errDetail["code"])
}

// WaitForCondition polls condition until it holds or timeout elapses.
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, message)
}

func init() {
	gin.SetMode(gin.TestMode)
}
