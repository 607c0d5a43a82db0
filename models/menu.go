package models

// MenuItem is a sellable item from the menu_items table. Prices are kept
// in integer cents; FormatPrice renders the customer-facing dollar amount.
type MenuItem struct {
	ID          int64
	Name        string
	Description string
	PriceCents  int64
	Category    string // "appetizer", "main", "dessert", "drink"
	Available   bool
}

const (
	CategoryAppetizer = "appetizer"
	CategoryMain      = "main"
	CategoryDessert   = "dessert"
	CategoryDrink     = "drink"
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryAppetizer, CategoryMain, CategoryDessert, CategoryDrink:
		return true
	}
	return false
}
