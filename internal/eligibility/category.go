// Package eligibility decides whether a raw availability slot from the
// practice management system may actually be offered to a caller. The bare
// availability feed ignores the office's real per-weekday opening hours, so
// each slot is checked against a static weekly schedule owned by the care
// category of its appointment type.
package eligibility

import "strings"

// Category groups appointment types that share the same weekly opening-hour
// schedule.
type Category string

const (
	CategoryConsultation Category = "consultation" // consultations, urgencies, assessments
	CategoryCleaning     Category = "cleaning"     // cleaning and maintenance visits
	CategoryProsthetics  Category = "prosthetics"  // veneers, prosthetics, fittings
	CategoryScaling      Category = "scaling"      // ultrasonic scaling sessions
	CategoryAligners     Category = "aligners"     // clear-aligner orthodontics
	CategorySurgery      Category = "surgery"
)

// codeCategories maps PMS appointment-type codes to their care category.
// Codes come from the office's rdvdentiste configuration and change rarely.
var codeCategories = map[string]Category{
	"27": CategoryConsultation,
	"31": CategoryConsultation,
	"45": CategoryConsultation,
	"84": CategoryCleaning,
	"85": CategoryCleaning,
	"52": CategoryProsthetics,
	"53": CategoryProsthetics,
	"61": CategoryScaling,
	"72": CategoryAligners,
	"73": CategoryAligners,
	"90": CategorySurgery,
	"91": CategorySurgery,
}

// nameFragments holds lowercase substrings matched against the appointment
// type display name when the code is unknown. Order matters: the first
// category with a hit wins.
var nameFragments = []struct {
	category  Category
	fragments []string
}{
	{CategoryConsultation, []string{"consultation", "urgence", "bilan", "contrôle", "controle"}},
	{CategoryCleaning, []string{"entretien", "maintenance", "nettoyage", "hygiène", "hygiene"}},
	{CategoryProsthetics, []string{"facette", "prothèse", "prothese", "couronne", "essayage", "bridge"}},
	{CategoryScaling, []string{"détartrage", "detartrage", "lithotritie"}},
	{CategoryAligners, []string{"aligneur", "gouttière", "gouttiere", "invisalign", "orthodontie"}},
	{CategorySurgery, []string{"chirurgie", "extraction", "implant"}},
}

// ResolveCategory maps an appointment type to its care category: first by
// exact code, then by case-insensitive substring match on the display name.
// A miss is a normal result, not an error; callers skip filtering for
// unresolved types.
func ResolveCategory(typeCode, typeName string) (Category, bool) {
	if typeCode != "" {
		if cat, ok := codeCategories[typeCode]; ok {
			return cat, true
		}
	}

	if typeName != "" {
		name := strings.ToLower(typeName)
		for _, entry := range nameFragments {
			for _, fragment := range entry.fragments {
				if strings.Contains(name, fragment) {
					return entry.category, true
				}
			}
		}
	}

	return "", false
}
