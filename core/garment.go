package core

import "fmt"

// Garment identifies the template a design is drawn on.
type Garment string

const (
	GarmentTShirt Garment = "tshirt"
	GarmentHoodie Garment = "hoodie"
	GarmentPants  Garment = "pants"
	GarmentCustom Garment = "custom"
)

// DefaultGarment is selected for new sessions and when a custom upload is cancelled.
const DefaultGarment = GarmentTShirt

// ParseGarment validates a garment name.
func ParseGarment(s string) (Garment, error) {
	switch g := Garment(s); g {
	case GarmentTShirt, GarmentHoodie, GarmentPants, GarmentCustom:
		return g, nil
	}
	return "", fmt.Errorf("unknown garment %q", s)
}

// Label returns the human readable garment name.
func (g Garment) Label() string {
	switch g {
	case GarmentTShirt:
		return "T-Shirt"
	case GarmentHoodie:
		return "Hoodie"
	case GarmentPants:
		return "Pants"
	case GarmentCustom:
		return "Custom"
	}
	return string(g)
}
