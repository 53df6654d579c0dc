package req

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policethief/internal/pkg/errs"
)

type joinInput struct {
	Code string `json:"code"`
}

func newJSONRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	return r
}

func TestBindJSON(t *testing.T) {
	var in joinInput
	err := BindJSON(httptest.NewRecorder(), newJSONRequest(`{"code":"abc"}`), &in)
	require.Nil(t, err)
	assert.Equal(t, "abc", in.Code)
}

func TestBindJSONRejections(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		ctype    string
		wantCode int
	}{
		{name: "wrong content type", body: `{}`, ctype: "text/plain", wantCode: errs.ErrUnsupportedMediaType},
		{name: "syntax error", body: `{"code":`, ctype: "application/json", wantCode: errs.ErrInvalidJSONFormat},
		{name: "unknown field", body: `{"nope":1}`, ctype: "application/json", wantCode: errs.ErrInvalidJSONFormat},
		{name: "trailing document", body: `{"code":"a"}{"code":"b"}`, ctype: "application/json", wantCode: errs.ErrExtraContentInBody},
		{name: "too large", body: `{"code":"` + strings.Repeat("x", int(MaxJSONBodyBytes)) + `"}`, ctype: "application/json", wantCode: errs.ErrRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.ctype)

			var in joinInput
			err := BindJSON(httptest.NewRecorder(), r, &in)
			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
		})
	}
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?min=36.5&party=true&bad=x", nil)

	v, err := QueryFloat(r, "min", 0)
	require.Nil(t, err)
	assert.InDelta(t, 36.5, v, 1e-9)

	v, err = QueryFloat(r, "missing", 7)
	require.Nil(t, err)
	assert.InDelta(t, 7.0, v, 1e-9)

	_, err = QueryFloat(r, "bad", 0)
	require.NotNil(t, err)

	b, err := QueryBool(r, "party")
	require.Nil(t, err)
	assert.True(t, b)

	_, err = QueryBool(r, "bad")
	require.NotNil(t, err)

	n, err := QueryInt(httptest.NewRequest(http.MethodGet, "/?limit=20", nil), "limit", 50)
	require.Nil(t, err)
	assert.Equal(t, 20, n)

	n, err = QueryInt(r, "limit", 50)
	require.Nil(t, err)
	assert.Equal(t, 50, n)

	_, err = QueryInt(r, "min", 0)
	assert.Equal(t, errs.ErrInvalidParams, err.Code)
}
