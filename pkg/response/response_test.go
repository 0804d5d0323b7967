package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/dlool-api/pkg/errors"
)

func TestErrorEnvelopeHidesCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Internal(errors.New("dial tcp: refused"), "failed to load request"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "refused")

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrInternal.Code, env.Error.Code)
	assert.Len(t, c.Errors, 1)
}

func TestJSONWithMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	JSON(c, http.StatusOK, []string{"a"}, map[string]interface{}{"count": 1})

	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":["a"],"meta":{"count":1}}`, w.Body.String())
}

func TestWriteEventFraming(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteEvent(&buf, "", map[string]string{"status": "pending"}))
	assert.Equal(t, "data: {\"status\":\"pending\"}\n\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteEvent(&buf, "error", "Invalid id"))
	assert.Equal(t, "event: error\ndata: Invalid id\n\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteComment(&buf, "ping"))
	assert.Equal(t, ": ping\n\n", buf.String())
}
