package catalog

// FreePlanID is the plan every account falls back to; it always exists and
// allocates zero monthly credits.
const FreePlanID = "free"

type SubscriptionPlan struct {
	ID              string `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	DisplayName     string `db:"display_name" json:"display_name"`
	MonthlyCredits  int64  `db:"monthly_credits" json:"monthly_credits"`
	PriceCents      int64  `db:"price_cents" json:"price_cents"`
	ProviderPlanRef string `db:"provider_plan_ref" json:"provider_plan_ref"`
	IsActive        bool   `db:"is_active" json:"is_active"`
}

type CreditProduct struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Credits    int64  `db:"credits" json:"credits"`
	PriceCents int64  `db:"price_cents" json:"price_cents"`
	IsActive   bool   `db:"is_active" json:"is_active"`
}
