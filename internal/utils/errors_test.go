package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodePastDate, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeUserNotApproved, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeUserNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeSlotConflict, http.StatusConflict},
		{CodeStoreUnavailable, http.StatusServiceUnavailable},
		{CodeProvisioningFailed, http.StatusBadGateway},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(E(tc.code, "Op", "msg", nil)), string(tc.code))
	}

	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestErrorFormatting(t *testing.T) {
	err := E(CodeSlotConflict, "BookingService.Allocate", "this time slot is already taken", nil)
	assert.Equal(t, "BookingService.Allocate: this time slot is already taken", err.Error())

	wrapped := E(CodeStoreUnavailable, "Repo.Get", "query failed", fmt.Errorf("conn reset"))
	assert.Equal(t, "Repo.Get: query failed: conn reset", wrapped.Error())
}

func TestUnwrapAndCodeHelpers(t *testing.T) {
	inner := errors.New("boom")
	err := E(CodeProvisioningFailed, "Op", "msg", inner)

	assert.ErrorIs(t, err, inner)
	assert.True(t, IsCode(err, CodeProvisioningFailed))
	assert.False(t, IsCode(err, CodeConflict))
	assert.Equal(t, CodeProvisioningFailed, ErrCode(err))
	assert.Equal(t, CodeInternal, ErrCode(errors.New("plain")))

	// outer wrapping still resolves the code
	outer := fmt.Errorf("handler: %w", err)
	assert.Equal(t, CodeProvisioningFailed, ErrCode(outer))
}
