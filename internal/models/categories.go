package models

// CropCategory tags a target crop with the model family it feeds.
type CropCategory string

const (
	CategoryCashCrop     CropCategory = "cash_crop"
	CategorySpice        CropCategory = "spice"
	CategoryHorticulture CropCategory = "horticulture"
)

// TargetCrops is the static crop→category mapping. Crops outside it are
// removed before imputation.
var TargetCrops = map[string]CropCategory{
	"Sugarcane":    CategoryCashCrop,
	"Onion":        CategoryHorticulture,
	"Potato":       CategoryHorticulture,
	"Turmeric":     CategorySpice,
	"Ginger":       CategorySpice,
	"Dry chillies": CategorySpice,
	"Garlic":       CategorySpice,
}

// HorticultureCrops is the literal horticulture membership. It overlaps the
// horticulture tag in TargetCrops on purpose and is not derived from it.
var HorticultureCrops = []string{"Onion", "Potato"}

// CropsInCategory returns the crops of mapping tagged with category.
func CropsInCategory(mapping map[string]CropCategory, category CropCategory) map[string]struct{} {
	out := make(map[string]struct{})
	for crop, c := range mapping {
		if c == category {
			out[crop] = struct{}{}
		}
	}
	return out
}
