package dto

type RevenueCatWebhook struct {
	APIVersion string          `json:"api_version"`
	Event      RevenueCatEvent `json:"event"`
}

type RevenueCatEvent struct {
	Type              string   `json:"type"`
	ID                string   `json:"id"`
	AppUserID         string   `json:"app_user_id"`
	OriginalAppUserID string   `json:"original_app_user_id"`
	ProductID         string   `json:"product_id"`
	EntitlementIDs    []string `json:"entitlement_ids"`
	PeriodType        string   `json:"period_type"`
	PurchasedAtMs     int64    `json:"purchased_at_ms"`
	ExpirationAtMs    int64    `json:"expiration_at_ms"`
	Environment       string   `json:"environment"`
	Store             string   `json:"store"`
	IsTrialConversion bool     `json:"is_trial_conversion"`
}
