package services

import (
	"strings"
)

// Location inference is restricted to the two geographies the directory
// curates. Unrecognized locations are dropped, not preserved.

var sanFranciscoIndicators = []string{
	"san francisco",
	"san fran",
	"bay area",
	"silicon valley",
	"south bay",
}

// Short codes are only matched as whole comma/space-separated tokens so
// "sf" does not fire inside unrelated words.
var sanFranciscoShortCodes = []string{"sf", "sfo"}

var indiaIndicators = []string{"india", "indian", "bharat"}

// indiaCityAliases maps the canonical city name to the spellings seen in
// free-text profile locations.
var indiaCityAliases = map[string][]string{
	"Ahmedabad": {"ahmedabad", "amdavad"},
	"Pune":      {"pune"},
	"Bangalore": {"bangalore", "bengaluru", "bangaluru"},
}

// knownCompanies is the curated roster used for fuzzy company matching.
// Matching is substring-based in either direction so known-name variants
// ("JPMorgan", "JP Morgan Chase") resolve to one entry.
var knownCompanies = []string{
	"Google",
	"Microsoft",
	"Amazon",
	"Meta",
	"Apple",
	"Netflix",
	"Uber",
	"Stripe",
	"Salesforce",
	"Adobe",
	"Atlassian",
	"GitHub",
	"GitLab",
	"Shopify",
	"LinkedIn",
	"Oracle",
	"IBM",
	"Intel",
	"Nvidia",
	"JPMorgan Chase",
	"Goldman Sachs",
	"Morgan Stanley",
	"Flipkart",
	"Infosys",
	"TCS",
	"Wipro",
	"Zoho",
	"Freshworks",
	"Zerodha",
	"Swiggy",
	"Zomato",
	"Razorpay",
	"CRED",
	"Paytm",
	"PhonePe",
}

// Location is the structured result of location inference.
type Location struct {
	Country *string
	City    *string
}

// AttributeService infers structured country/city and a normalized company
// name from free-text GitHub profile fields and organization memberships.
type AttributeService struct{}

func NewAttributeService() *AttributeService {
	return &AttributeService{}
}

// ExtractLocation infers {country, city} from a raw profile location string.
func (s *AttributeService) ExtractLocation(rawLocation string) Location {
	loc := strings.ToLower(strings.TrimSpace(rawLocation))
	if loc == "" {
		return Location{}
	}

	if matchesSanFrancisco(loc) {
		return Location{Country: strPtr("United States"), City: strPtr("San Francisco")}
	}

	if matchesIndia(loc) {
		if city, ok := matchIndiaCity(loc); ok {
			return Location{Country: strPtr("India"), City: strPtr(city)}
		}
		// "City, Country" heuristic: the leading segment may carry a city
		// spelling the direct scan missed.
		if parts := strings.Split(loc, ","); len(parts) > 1 {
			if city, ok := matchIndiaCity(strings.TrimSpace(parts[0])); ok {
				return Location{Country: strPtr("India"), City: strPtr(city)}
			}
		}
		return Location{Country: strPtr("India")}
	}

	return Location{}
}

// ExtractCompany normalizes a company from organization logins and the
// free-text company field. Organization memberships take precedence over the
// self-reported company field.
func (s *AttributeService) ExtractCompany(orgLogins []string, companyField string) *string {
	for _, org := range orgLogins {
		if matched, ok := fuzzyMatchCompany(org); ok {
			return strPtr(matched)
		}
	}
	if len(orgLogins) > 0 {
		if org := strings.TrimSpace(orgLogins[0]); org != "" {
			return strPtr(org)
		}
	}

	cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(companyField), "@"))
	if cleaned == "" {
		return nil
	}
	if matched, ok := fuzzyMatchCompany(cleaned); ok {
		return strPtr(matched)
	}
	return strPtr(cleaned)
}

func matchesSanFrancisco(loc string) bool {
	for _, indicator := range sanFranciscoIndicators {
		if strings.Contains(loc, indicator) {
			return true
		}
	}
	for _, code := range sanFranciscoShortCodes {
		for _, token := range tokenize(loc) {
			if token == code {
				return true
			}
		}
	}
	return false
}

func matchesIndia(loc string) bool {
	for _, indicator := range indiaIndicators {
		if strings.Contains(loc, indicator) {
			return true
		}
	}
	// A lone "in" country code counts, but only as a whole token.
	for _, token := range tokenize(loc) {
		if token == "in" {
			return true
		}
	}
	return false
}

func matchIndiaCity(loc string) (string, bool) {
	for city, aliases := range indiaCityAliases {
		for _, alias := range aliases {
			if strings.Contains(loc, alias) {
				return city, true
			}
		}
	}
	return "", false
}

// fuzzyMatchCompany matches case-insensitively as a substring in either
// direction against the roster. Not guaranteed injective.
func fuzzyMatchCompany(name string) (string, bool) {
	candidate := strings.ToLower(strings.TrimSpace(name))
	if candidate == "" {
		return "", false
	}
	for _, company := range knownCompanies {
		known := strings.ToLower(company)
		if strings.Contains(candidate, known) || strings.Contains(known, candidate) {
			return company, true
		}
	}
	return "", false
}

func tokenize(loc string) []string {
	return strings.FieldsFunc(loc, func(r rune) bool {
		return r == ',' || r == ' ' || r == '/' || r == '|'
	})
}

func strPtr(s string) *string {
	return &s
}
