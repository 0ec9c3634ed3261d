package models

type View string

const (
	ViewOverview  View = "overview"
	ViewDiet      View = "diet"
	ViewHydration View = "hydration"
	ViewSupport   View = "support-chat"
	ViewJournal   View = "journal"
)

// ParseView maps a selector to a known view; anything unrecognized is the overview.
func ParseView(s string) View {
	switch v := View(s); v {
	case ViewOverview, ViewDiet, ViewHydration, ViewSupport, ViewJournal:
		return v
	default:
		return ViewOverview
	}
}
