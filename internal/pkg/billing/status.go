package billing

import (
	"strings"

	"github.com/fixia-app/FixiaCore/app/models"
)

// MapGatewayStatus translates a gateway payment status into the internal
// payment state. The table is fixed; statuses the gateway adds later default
// to pending so that the reconciliation sweep re-polls them instead of the
// webhook path failing.
func MapGatewayStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved":
		return models.PaymentStateApproved
	case "rejected", "charged_back":
		return models.PaymentStateRejected
	case "cancelled":
		return models.PaymentStateCancelled
	case "refunded":
		return models.PaymentStateRefunded
	case "authorized", "in_process", "in_mediation", "pending":
		return models.PaymentStatePending
	default:
		return models.PaymentStatePending
	}
}
