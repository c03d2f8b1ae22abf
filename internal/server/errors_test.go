package server

import (
	"net/http"
	"testing"

	accountdomain "github.com/smallbiznis/perks/internal/account/domain"
	offerdomain "github.com/smallbiznis/perks/internal/offer/domain"
	rewarddomain "github.com/smallbiznis/perks/internal/reward/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"account not found", accountdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"offer not found", offerdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"invalid amount", rewarddomain.ErrInvalidAmount, http.StatusBadRequest, "validation_error"},
		{"invalid account id", rewarddomain.ErrInvalidAccountID, http.StatusBadRequest, "validation_error"},
		{"invalid offer title", offerdomain.ErrInvalidTitle, http.StatusBadRequest, "validation_error"},
		{"sold out", offerdomain.ErrOfferSoldOut, http.StatusConflict, "offer_sold_out"},
		{"expired", offerdomain.ErrOfferExpired, http.StatusBadRequest, "offer_expired"},
		{"inactive", offerdomain.ErrOfferInactive, http.StatusBadRequest, "offer_inactive"},
		{"corrupt balance", rewarddomain.ErrCorruptBalance, http.StatusInternalServerError, "internal_error"},
		{"transaction failed", rewarddomain.ErrTransactionFailed, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantType, payload.Type)
		})
	}
}

func TestMapErrorInsufficientBalance(t *testing.T) {
	status, payload := mapError(&rewarddomain.InsufficientBalanceError{
		Required:  150,
		Available: 100,
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "insufficient_balance", payload.Type)
	require.NotNil(t, payload.Required)
	require.NotNil(t, payload.Available)
	assert.Equal(t, int64(150), *payload.Required)
	assert.Equal(t, int64(100), *payload.Available)
}

func TestValidationErrorFieldDerivation(t *testing.T) {
	assert.Equal(t, "amount", validationErrorField("invalid_amount"))
	assert.Equal(t, "request", validationErrorField("invalid_request"))
	assert.Equal(t, "", validationErrorField("weird"))
}
