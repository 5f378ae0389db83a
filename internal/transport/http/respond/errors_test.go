package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "proofshare/pkg/domain-errors"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeNotFound, http.StatusNotFound},
		{dErrors.CodeBadRequest, http.StatusBadRequest},
		{dErrors.CodeValidation, http.StatusBadRequest},
		{dErrors.CodeInvalidInput, http.StatusBadRequest},
		{dErrors.CodeIntegrity, http.StatusBadRequest},
		{dErrors.CodeInvariantViolation, http.StatusBadRequest},
		{dErrors.CodeConflict, http.StatusConflict},
		{dErrors.CodeInvalidTransition, http.StatusConflict},
		{dErrors.CodeUnauthorized, http.StatusUnauthorized},
		{dErrors.CodeCapacityExceeded, http.StatusTooManyRequests},
		{dErrors.CodeResponseMismatch, http.StatusUnprocessableEntity},
		{dErrors.CodeMissingRequiredProof, http.StatusUnprocessableEntity},
		{dErrors.CodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, dErrors.New(tc.code, "something happened"))

			assert.Equal(t, tc.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tc.code), body["error"])
			assert.Equal(t, "something happened", body["error_description"])
		})
	}
}

func TestWriteErrorUnwrapsNestedDomainError(t *testing.T) {
	inner := dErrors.New(dErrors.CodeNotFound, "session not found")
	rec := httptest.NewRecorder()
	WriteError(rec, errors.Join(errors.New("list failed"), inner))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteErrorPlainErrorFallsBack(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("disk on fire"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(dErrors.CodeInternal), body["error"])
	assert.NotContains(t, body, "error_description", "internal details are not leaked")
}
