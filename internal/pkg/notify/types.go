package notify

import "github.com/fixia-app/FixiaCore/app/models"

// PushMessage is the provider-neutral push payload.
type PushMessage struct {
	Title    string
	Body     string
	Icon     string
	DeepLink string
	Data     map[string]string
}

// SendReport aggregates per-token delivery outcomes.
type SendReport struct {
	SuccessCount int
	FailureCount int
}

// TokenResult is the per-token outcome reported by the push provider.
type TokenResult struct {
	Token     string
	Success   bool
	ErrorCode string
}

// DeepLinkFor resolves the in-app target a notification tap navigates to.
// The category table is fixed; the payload only refines it (entity ids, the
// system action_url override, approved payments landing on the dashboard).
func DeepLinkFor(category models.NotificationCategory, payload map[string]string) string {
	switch category {
	case models.CategoryMatch:
		if id := payload["match_id"]; id != "" {
			return "/matches/" + id
		}
		return "/matches"
	case models.CategoryMessage:
		if id := payload["chat_id"]; id != "" {
			return "/chats/" + id
		}
		return "/chats"
	case models.CategoryRating:
		return "/profile/ratings"
	case models.CategorySystem:
		if u := payload["action_url"]; u != "" {
			return u
		}
		return "/dashboard"
	case models.CategoryPayment:
		if payload["status"] == "approved" {
			return "/dashboard"
		}
		return "/payments"
	default:
		return "/dashboard"
	}
}

// IconFor returns the default icon name shown for a category.
func IconFor(category models.NotificationCategory) string {
	switch category {
	case models.CategoryMatch:
		return "handshake"
	case models.CategoryMessage:
		return "chat"
	case models.CategoryRating:
		return "star"
	case models.CategorySystem:
		return "bell"
	case models.CategoryPayment:
		return "credit-card"
	default:
		return "bell"
	}
}
