package interfaces

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"shiftmatch/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NotFound("job"), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.Forbidden("no"), http.StatusForbidden},
		{domain.Conflict("EMAIL_TAKEN", "taken"), http.StatusConflict},
		{domain.ErrInvalidState, http.StatusConflict},
		{domain.Validation("bad"), http.StatusBadRequest},
		{domain.NewError(domain.ErrUnauthorized, "INVALID_TOKEN", "auth"), http.StatusUnauthorized},
		{domain.ErrTemplateMissing, http.StatusServiceUnavailable},
		{domain.ErrUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestIPLimiterIsPerAddress(t *testing.T) {
	l := newIPLimiter(1, 1)
	assert.True(t, l.get("10.0.0.1").Allow())
	assert.False(t, l.get("10.0.0.1").Allow())
	assert.True(t, l.get("10.0.0.2").Allow())
}

func TestIPLimiterForgetsEvictedAddresses(t *testing.T) {
	l := newIPLimiter(1, 1)
	l.limiters = expirable.NewLRU[string, *rate.Limiter](2, nil, time.Minute)

	assert.True(t, l.get("10.0.0.1").Allow())
	assert.False(t, l.get("10.0.0.1").Allow())
	l.get("10.0.0.2")
	l.get("10.0.0.3")
	assert.Equal(t, 2, l.limiters.Len())

	// 10.0.0.1 was the least recently used and starts with a fresh bucket.
	assert.True(t, l.get("10.0.0.1").Allow())
}

func TestSecretMatches(t *testing.T) {
	assert.True(t, secretMatches("cron-secret", "cron-secret"))
	assert.False(t, secretMatches("cron-secreT", "cron-secret"))
	assert.False(t, secretMatches("cron", "cron-secret"))
	assert.False(t, secretMatches("", "cron-secret"))
}
