package scheduling

import (
	"context"
	"strings"
)

// reasonKeywords maps what callers say to fragments expected in the matching
// appointment-type name. Ordered: urgency-sounding reasons must win over
// generic ones.
var reasonKeywords = []struct {
	typeFragment string
	spoken       []string
}{
	{"urgence", []string{"urgence", "douleur", "mal", "cassé", "casse", "abcès", "abces", "gonflement", "saigne"}},
	{"détartrage", []string{"détartrage", "detartrage", "nettoyage", "tartre", "hygiène", "hygiene"}},
	{"consultation", []string{"consultation", "contrôle", "controle", "visite", "check", "bilan", "nouveau patient", "première visite", "premiere visite"}},
	{"extraction", []string{"extraction", "arracher", "enlever dent", "retirer"}},
	{"couronne", []string{"couronne", "prothèse", "prothese", "bridge"}},
	{"implant", []string{"implant"}},
	{"blanchiment", []string{"blanchiment", "blanchir", "éclaircissement", "eclaircissement"}},
	{"carie", []string{"carie", "cavité", "cavite", "trou"}},
	{"dévitalisation", []string{"dévitalisation", "devitalisation", "canal", "racine"}},
}

// SuggestType picks the appointment type best matching a caller's free-text
// reason. It is a keyword heuristic, not a clinical decision: on no match it
// falls back to a consultation-looking type, then to the first type offered.
// A nil suggestion means the office exposes no types at all.
func (s *Service) SuggestType(ctx context.Context, creds Credentials, reason string) (*AppointmentType, error) {
	types, err := s.AppointmentTypes(ctx, creds)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, nil
	}

	spoken := strings.ToLower(reason)

	for _, mapping := range reasonKeywords {
		if !containsAny(spoken, mapping.spoken) {
			continue
		}
		for i := range types {
			name := strings.ToLower(types[i].Name)
			if strings.Contains(name, mapping.typeFragment) || containsAny(name, mapping.spoken) {
				return &types[i], nil
			}
		}
	}

	for i := range types {
		name := strings.ToLower(types[i].Name)
		if strings.Contains(name, "consultation") || strings.Contains(name, "visite") || strings.Contains(name, "examen") {
			return &types[i], nil
		}
	}

	return &types[0], nil
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
