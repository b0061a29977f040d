package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLocationSanFrancisco(t *testing.T) {
	service := NewAttributeService()

	cases := []string{
		"San Francisco, CA",
		"san francisco",
		"SF Bay Area",
		"Silicon Valley",
		"SFO",
		"sf",
	}
	for _, raw := range cases {
		loc := service.ExtractLocation(raw)
		assert.NotNil(t, loc.Country, raw)
		assert.Equal(t, "United States", *loc.Country, raw)
		assert.NotNil(t, loc.City, raw)
		assert.Equal(t, "San Francisco", *loc.City, raw)
	}
}

func TestExtractLocationIndiaCities(t *testing.T) {
	service := NewAttributeService()

	cases := map[string]string{
		"Bengaluru, India": "Bangalore",
		"bangalore":        "Bangalore",
		"Pune, IN":         "Pune",
		"Amdavad, Bharat":  "Ahmedabad",
		"Ahmedabad, India": "Ahmedabad",
	}
	for raw, city := range cases {
		loc := service.ExtractLocation(raw)
		assert.NotNil(t, loc.Country, raw)
		assert.Equal(t, "India", *loc.Country, raw)
		assert.NotNil(t, loc.City, raw)
		assert.Equal(t, city, *loc.City, raw)
	}
}

func TestExtractLocationIndiaWithoutKnownCity(t *testing.T) {
	service := NewAttributeService()

	loc := service.ExtractLocation("Hyderabad, India")
	assert.NotNil(t, loc.Country)
	assert.Equal(t, "India", *loc.Country)
	assert.Nil(t, loc.City)
}

func TestExtractLocationUnknown(t *testing.T) {
	service := NewAttributeService()

	for _, raw := range []string{"Berlin, Germany", "London", "", "   ", "Indonesia is not matched by token"} {
		loc := service.ExtractLocation(raw)
		assert.Nil(t, loc.Country, raw)
		assert.Nil(t, loc.City, raw)
	}
}

func TestExtractLocationShortCodesRequireWholeTokens(t *testing.T) {
	service := NewAttributeService()

	// "in" inside a word must not trigger the India country code.
	loc := service.ExtractLocation("Berlin")
	assert.Nil(t, loc.Country)

	// As a standalone token it does.
	loc = service.ExtractLocation("Pune, IN")
	assert.NotNil(t, loc.Country)
	assert.Equal(t, "India", *loc.Country)
}

func TestExtractCompanyFromOrgs(t *testing.T) {
	service := NewAttributeService()

	company := service.ExtractCompany([]string{"google"}, "")
	assert.NotNil(t, company)
	assert.Equal(t, "Google", *company)

	// First matching org wins over the free-text field.
	company = service.ExtractCompany([]string{"randomorg", "microsoft"}, "Stripe")
	assert.NotNil(t, company)
	assert.Equal(t, "Microsoft", *company)
}

func TestExtractCompanyUnmatchedOrgFallsBackToFirstOrg(t *testing.T) {
	service := NewAttributeService()

	company := service.ExtractCompany([]string{"some-small-startup"}, "Google")
	assert.NotNil(t, company)
	assert.Equal(t, "some-small-startup", *company)
}

func TestExtractCompanyFromFreeTextField(t *testing.T) {
	service := NewAttributeService()

	company := service.ExtractCompany(nil, "@GitHub")
	assert.NotNil(t, company)
	assert.Equal(t, "GitHub", *company)

	company = service.ExtractCompany(nil, "JPMorgan")
	assert.NotNil(t, company)
	assert.Equal(t, "JPMorgan Chase", *company)

	// Unknown companies are preserved verbatim after cleanup.
	company = service.ExtractCompany(nil, "@Acme Corp ")
	assert.NotNil(t, company)
	assert.Equal(t, "Acme Corp", *company)
}

func TestExtractCompanyEmpty(t *testing.T) {
	service := NewAttributeService()

	assert.Nil(t, service.ExtractCompany(nil, ""))
	assert.Nil(t, service.ExtractCompany(nil, "  @  "))
}
