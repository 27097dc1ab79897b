package domain

// Category identifies a Bybit V5 market category.
type Category string

const (
	CategorySpot    Category = "spot"
	CategoryLinear  Category = "linear"
	CategoryInverse Category = "inverse"
)

// Valid reports whether the category is one the scanner supports.
func (c Category) Valid() bool {
	switch c {
	case CategorySpot, CategoryLinear, CategoryInverse:
		return true
	}

	return false
}

func (c Category) String() string {
	return string(c)
}
