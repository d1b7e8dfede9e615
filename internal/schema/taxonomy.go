package schema

import "strings"

// Fixed core nodes that anchor dynamic folders.
const (
	CategoryBanking   = "BANKING"
	CategoryFormSub   = "FORMSUB"
	CategoryManager   = "MANAGER"
	CategorySuppliers = "SUPPLIERS"
	CategoryPromo     = "PROMO"
	CategoryMisc      = "MISC"

	// UnassignedFolder always exists under MANAGER, even with zero team members.
	UnassignedFolder = "Unassigned"
)

// baseCategories is the taxonomy shared by every business type, in creation
// order.
var baseCategories = []string{
	CategoryBanking,
	CategoryFormSub,
	CategoryManager,
	CategorySuppliers,
	CategoryPromo,
	CategoryMisc,
}

// categoryAliases folds the name variants that drifted between the schema,
// classifier and validator layers onto one canonical key. Treated as
// configuration: extend it when a business-type template introduces a new
// variant.
// TODO: verify the alias list against the classifier prompt templates once
// those are versioned alongside this repo.
var categoryAliases = map[string]string{
	"forms":            "formsub",
	"form":             "formsub",
	"form submissions": "formsub",
	"bank":             "banking",
	"promos":           "promo",
	"promotions":       "promo",
	"vendors":          "suppliers",
	"managers":         "manager",
	"miscellaneous":    "misc",
}

// CanonicalCategory lower-cases a category name and folds known aliases.
func CanonicalCategory(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if folded, ok := categoryAliases[key]; ok {
		return folded
	}
	return key
}

// CategoryExtension adjusts one top-level category for a business type.
type CategoryExtension struct {
	Category   string
	RenameTo   string
	Subfolders []string
}

// Extension is a business-type template layered over the base taxonomy.
// Extensions win name conflicts against the base.
type Extension struct {
	DisplayName string
	Categories  []CategoryExtension
}

// extensions registers the known business-type templates keyed by slug.
var extensions = map[string]Extension{
	"general": {
		DisplayName: "General",
	},
	"hot-tub-spa": {
		DisplayName: "Hot tub & Spa",
		Categories: []CategoryExtension{
			{Category: CategoryBanking, Subfolders: []string{"Deposits", "Chargebacks"}},
			{Category: CategoryFormSub, Subfolders: []string{"Service Request", "Water Test Request", "Warranty Claim"}},
		},
	},
	"landscaping": {
		DisplayName: "Landscaping",
		Categories: []CategoryExtension{
			{Category: CategoryFormSub, Subfolders: []string{"Quote Request", "Maintenance Plan"}},
			{Category: CategoryBanking, Subfolders: []string{"Deposits"}},
		},
	},
	"hvac": {
		DisplayName: "HVAC",
		Categories: []CategoryExtension{
			{Category: CategoryFormSub, Subfolders: []string{"Installation Quote", "Service Call", "Permit"}},
			{Category: CategoryBanking, Subfolders: []string{"Deposits"}},
		},
	},
}

// BusinessTypeSlug normalises a business-type key or display name into the
// registry slug, e.g. "Hot tub & Spa" -> "hot-tub-spa".
func BusinessTypeSlug(value string) string {
	slug := strings.ToLower(strings.TrimSpace(value))
	slug = strings.ReplaceAll(slug, "&", " ")
	slug = strings.Join(strings.Fields(slug), "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	return slug
}

// KnownBusinessTypes returns the registered template slugs.
func KnownBusinessTypes() []string {
	slugs := make([]string, 0, len(extensions))
	for slug := range extensions {
		slugs = append(slugs, slug)
	}
	return slugs
}
