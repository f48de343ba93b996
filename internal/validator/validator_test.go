package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,username"`
	Email    string `json:"email" binding:"required,email"`
}

func bindBody(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req registerRequest
	return Bind(c, &req)
}

func TestBind_Valid(t *testing.T) {
	assert.Nil(t, bindBody(t, `{"username": "ada.l", "email": "ada@example.com"}`))
}

func TestBind_UsesJSONFieldNames(t *testing.T) {
	fields := bindBody(t, `{"username": "ab", "email": "nope"}`)

	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields["email"], "valid email")
}

func TestBind_CustomUsernameRule(t *testing.T) {
	fields := bindBody(t, `{"username": "bad name!", "email": "ada@example.com"}`)

	assert.Equal(t, "username may only contain letters, digits, '_', '.' and '-'", fields["username"])
}

func TestBind_SyntaxErrorGoesToDetail(t *testing.T) {
	fields := bindBody(t, `{"username":`)

	assert.Contains(t, fields, "detail")
}
