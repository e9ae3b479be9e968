package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	g := gin.New()
	g.GET("/ok", func(c *gin.Context) { OK(c, http.StatusCreated, gin.H{"id": 1}) })
	g.GET("/fail", func(c *gin.Context) { Fail(c, http.StatusUnauthorized, CodeUnauthorized, "login required") })
	g.GET("/fields", func(c *gin.Context) {
		FailFields(c, http.StatusBadRequest, "bad", []FieldError{{Field: "email", Reason: "required"}})
	})

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"status":"SUCCESS","data":{"id":1}}`, w.Body.String())

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	var body Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, StatusError, body.Status)
	require.Equal(t, CodeUnauthorized, body.ErrorCode)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fields", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"status":"ERROR","message":"bad","errorCode":"INVALID_INPUT","fieldErrors":[{"field":"email","reason":"required"}]}`, w.Body.String())
}
