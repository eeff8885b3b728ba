package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("person")))
	assert.True(t, IsNotFound(ErrPersonNotFound("p1")))
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", ErrPersonNotFound("p1"))))
	assert.False(t, IsNotFound(NewValidationError("bad")))
	assert.False(t, IsNotFound(nil))
}

func TestIsValidation(t *testing.T) {
	verrs := NewValidationErrors()
	verrs.Add("fullName", "required")

	assert.True(t, IsValidation(verrs))
	assert.True(t, IsValidation(ErrSpouseGender()))
	assert.True(t, IsValidation(NewValidationError("bad")))
	assert.False(t, IsValidation(ErrPersonNotFound("p1")))
}

func TestDomainErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ErrSelfReference("fatherId"))
	assert.ErrorIs(t, err, ErrSelfReference("spouseId"))
	assert.NotErrorIs(t, err, ErrSpouseGender())
}

func TestDomainErrorConstructorsAreIndependent(t *testing.T) {
	a := ErrPersonNotFound("a")
	b := ErrPersonNotFound("b")
	assert.Equal(t, "a", a.Details["personID"])
	assert.Equal(t, "b", b.Details["personID"])
}

func TestValidationErrors(t *testing.T) {
	verrs := NewValidationErrors()
	assert.NoError(t, verrs.ErrOrNil())

	verrs.Add("fullName", "is required")
	verrs.AddError(ErrSelfReference("fatherId"))
	verrs.Add("fullName", "is too long")

	require.Error(t, verrs.ErrOrNil())
	m := verrs.ToMap()
	assert.Len(t, m["fullName"], 2)
	assert.Len(t, m["fatherId"], 1)
	assert.Contains(t, verrs.Error(), "Validation failed")
}

func TestHasCode(t *testing.T) {
	verrs := NewValidationErrors()
	verrs.AddError(ErrReferenceMissing("fatherId", "x"))
	verrs.AddError(ErrSpouseGender())

	assert.True(t, HasCode(verrs, "SPOUSE_GENDER_MISMATCH"))
	assert.True(t, HasCode(fmt.Errorf("create: %w", verrs), "REFERENCE_NOT_FOUND"))
	assert.True(t, HasCode(ErrPersonNotFound("p1"), "PERSON_NOT_FOUND"))
	assert.False(t, HasCode(verrs, "PERSON_NOT_FOUND"))
	assert.False(t, HasCode(NewInternalError("boom"), "PERSON_NOT_FOUND"))
}

func TestResolve(t *testing.T) {
	verrs := NewValidationErrors()
	verrs.Add("gender", "is required")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation errors", verrs, http.StatusBadRequest, string(ErrorTypeValidation)},
		{"domain not found", ErrPersonNotFound("x"), http.StatusNotFound, string(DomainNotFoundError)},
		{"business rule", ErrSpouseGender(), http.StatusUnprocessableEntity, string(DomainBusinessRuleError)},
		{"conflict", ErrDuplicatePerson("x"), http.StatusConflict, string(DomainConflictError)},
		{"app error", NewDatabaseError("save", fmt.Errorf("boom")), http.StatusInternalServerError, string(ErrorTypeDatabase)},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError, string(ErrorTypeInternal)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := Resolve(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, resp.Type)
			assert.True(t, resp.Error)
		})
	}
}

func TestErrorHandler_Handle(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/persons/x", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()

	h.Handle(rec, req, ErrPersonNotFound("x"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PERSON_NOT_FOUND", body.Code)
	assert.Equal(t, "req-1", body.RequestID)
}

func TestErrorHandler_HidesInternalMessages(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()

	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("secret connection string"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestErrorHandler_Middleware(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	panicky := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	panicky.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
