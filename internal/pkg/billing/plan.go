package billing

import (
	"strings"

	"github.com/fixia-app/FixiaCore/app/models"
)

// Monthly price table in cents. The annual plan is billed once per year.
var planPrices = map[string]int64{
	models.PlanBasic:        1499,
	models.PlanProfessional: 2999,
	models.PlanPremium:      4999,
	models.PlanAnnual:       29999,
}

func normalizePlan(plan string) string {
	p := strings.ToLower(strings.TrimSpace(plan))
	if models.IsValidPlan(p) {
		return p
	}
	return ""
}

// PlanPriceCents returns the list price for a plan, 0 for unknown plans.
func PlanPriceCents(plan string) int64 {
	return planPrices[normalizePlan(plan)]
}

// planForAmount resolves a plan from a charged amount. Used as a fallback
// when the gateway metadata does not carry an explicit plan reference.
func planForAmount(amountCents int64) string {
	for _, plan := range []string{models.PlanBasic, models.PlanProfessional, models.PlanPremium, models.PlanAnnual} {
		if planPrices[plan] == amountCents {
			return plan
		}
	}
	return ""
}

// ResolvePlanForPayment picks the plan for a reconciled payment row using
// the authoritative gateway detail when available.
func ResolvePlanForPayment(payment *models.Payment, detail *GatewayPayment) string {
	metaPlan := ""
	amount := payment.AmountCents
	if detail != nil {
		metaPlan = detail.Metadata["plan"]
		if detail.AmountCents > 0 {
			amount = detail.AmountCents
		}
	}
	return resolvePlan(metaPlan, amount)
}

// resolvePlan picks the plan for an incoming payment: explicit metadata
// reference first, amount match second, basic as the last resort so that a
// paid approval is never dropped over a plan mismatch.
func resolvePlan(metadataPlan string, amountCents int64) string {
	if p := normalizePlan(metadataPlan); p != "" {
		return p
	}
	if p := planForAmount(amountCents); p != "" {
		return p
	}
	return models.PlanBasic
}
