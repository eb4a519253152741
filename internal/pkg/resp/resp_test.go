package resp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmspace/internal/pkg/errs"
)

func TestRespondSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	RespondSuccess(w, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"roomId": "bar"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"roomId":"bar"}}`, w.Body.String())
}

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondError(w, httptest.NewRequest(http.MethodGet, "/", nil), errs.NewError(errs.ErrRoomNotFound))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errs.ErrRoomNotFound, body.Code)
	assert.Nil(t, body.Data)
}

func TestRespondError_NilIsUnknown(t *testing.T) {
	w := httptest.NewRecorder()
	RespondError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
