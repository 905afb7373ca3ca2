package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginForm struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Price    float64 `json:"price" validate:"gte=0"`
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(loginForm{Email: "ana@example.com", Password: "secret1"}))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(loginForm{Email: "nope", Price: -1})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "is required", fields["password"])
	assert.Equal(t, "must be greater than or equal to 0", fields["price"])
	assert.Equal(t, "invalid email must be a valid email address, password is required, price must be greater than or equal to 0", err.Error())
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"email":"ana@example.com","password":"secret1","price":3}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst loginForm
	require.NoError(t, DecodeAndValidate(req, &dst))
	assert.Equal(t, 3.0, dst.Price)
}

func TestDecodeAndValidate_BadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))

	var dst loginForm
	err := DecodeAndValidate(req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
