package domain

// CategoryScope separates spend-tracking categories from the ones used by
// other parts of the app.
type CategoryScope string

const (
	CategoryScopeExpense CategoryScope = "expense"
	CategoryScopeHabit   CategoryScope = "habit"
)

// Shared category that every transfer leg is filed under.
const (
	TransfersCategoryName  = "Transfers"
	TransfersCategoryIcon  = "arrow-left-right"
	TransfersCategoryColor = "#64748B"
)

// Placeholder metadata for movements whose category was deleted.
const (
	UnknownCategoryName  = "Uncategorized"
	UnknownCategoryIcon  = "help-circle"
	UnknownCategoryColor = "#9CA3AF"
)

// Category classifies movements for a user.
type Category struct {
	ID     string
	UserID string
	Name   string
	Scope  CategoryScope
	Icon   string
	Color  string
}

// Summary returns the compact view attached to movements.
func (c *Category) Summary() CategorySummary {
	return CategorySummary{
		ID:    c.ID,
		Name:  c.Name,
		Icon:  c.Icon,
		Color: c.Color,
	}
}

// CategorySummary is the category data joined onto movements.
type CategorySummary struct {
	ID    string
	Name  string
	Icon  string
	Color string
}
