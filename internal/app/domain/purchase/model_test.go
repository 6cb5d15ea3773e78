package purchase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatusValid(t *testing.T) {
	for _, status := range []PaymentStatus{StatusPending, StatusCompleted, StatusFailed, StatusRefunded} {
		assert.True(t, status.Valid(), "status %s", status)
	}

	assert.False(t, PaymentStatus("").Valid())
	assert.False(t, PaymentStatus("SHIPPED").Valid())
	assert.False(t, PaymentStatus("completed").Valid(), "statuses are case sensitive")
}
