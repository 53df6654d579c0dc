/*
Package req binds HTTP request bodies and query parameters into handler input structs.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"policethief/internal/pkg/errs"
)

// MaxJSONBodyBytes caps every JSON request body.
const MaxJSONBodyBytes int64 = 64 << 10

// BindJSON decodes a single JSON document from the request body into dst.
// Unknown fields, trailing content and bodies over MaxJSONBodyBytes are rejected.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// QueryFloat reads an optional float query parameter; a missing value yields def.
func QueryFloat(r *http.Request, key string, def float64) (float64, *errs.CustomError) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}
	return v, nil
}

// QueryBool reads an optional boolean query parameter; a missing value yields false.
func QueryBool(r *http.Request, key string) (bool, *errs.CustomError) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errs.NewError(errs.ErrInvalidParams)
	}
	return v, nil
}

// QueryInt reads an optional integer query parameter; a missing value yields def.
func QueryInt(r *http.Request, key string, def int) (int, *errs.CustomError) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}
	return v, nil
}
