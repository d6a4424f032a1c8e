package model

import "fmt"

// Category is one of the fixed municipal grievance categories. The set is
// closed: every budget carries a pool row for each, configured or not.
type Category string

const (
	CategoryWater       Category = "water"
	CategoryRoads       Category = "roads"
	CategorySanitation  Category = "sanitation"
	CategoryElectricity Category = "electricity"
	CategoryDrainage    Category = "drainage"
	CategoryStreetlight Category = "streetlight"
	CategoryWaste       Category = "waste"
	CategoryParks       Category = "parks"
)

// Categories lists every category in canonical display order.
var Categories = []Category{
	CategoryWater,
	CategoryRoads,
	CategorySanitation,
	CategoryElectricity,
	CategoryDrainage,
	CategoryStreetlight,
	CategoryWaste,
	CategoryParks,
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}
