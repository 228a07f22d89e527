package types

import "fmt"

// Category groups obligations by the kind of deadline they track
type Category string

const (
	CategoryTax          Category = "TAX"
	CategorySubscription Category = "SUBSCRIPTION"
	CategoryLegal        Category = "LEGAL"
	CategoryBusiness     Category = "BUSINESS"
	CategoryPersonal     Category = "PERSONAL"
	CategoryOther        Category = "OTHER"
)

// AllCategories returns all valid categories
func AllCategories() []Category {
	return []Category{
		CategoryTax,
		CategorySubscription,
		CategoryLegal,
		CategoryBusiness,
		CategoryPersonal,
		CategoryOther,
	}
}

// IsValid checks if the category is valid
func (c Category) IsValid() bool {
	for _, v := range AllCategories() {
		if c == v {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory parses a string into a Category
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid category: %s", s)
	}
	return c, nil
}
