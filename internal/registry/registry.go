// Package registry defines the per-register schemas shared by validation,
// cleaning and remediation. Each register category is an independently
// published CSV extract with its own column set but common conventions:
// a 20-character LEI identifier, DD/MM/YYYY dates, and pipe-separated
// multi-value columns.
package registry

import (
	"fmt"
	"sort"
	"strings"
)

// Type names one register category.
type Type string

// Register categories.
const (
	CASP  Type = "casp"
	Other Type = "other"
	ART   Type = "art"
	EMT   Type = "emt"
	NCASP Type = "ncasp"
)

// MultiValueDelimiter is the fixed secondary delimiter for multi-value
// columns across all registers.
const MultiValueDelimiter = "|"

// IdentifierColumn is the LEI column shared by every register.
const IdentifierColumn = "ae_lei"

// DateLayouts is the accepted date format set, in match order. The first
// layout is also the canonical output format.
var DateLayouts = []string{"02/01/2006", "2006-01-02"}

// Register describes one category's CSV schema and cleaning behavior.
type Register struct {
	Type            Type
	RequiredColumns []string
	DateColumns     []string
	// ServiceCodeColumn holds pipe-separated service codes (a-j);
	// empty for registers without services.
	ServiceCodeColumn string
	// CountryCodeColumn holds pipe-separated passporting countries.
	CountryCodeColumn string
	// WebsiteColumns tolerate multiline values (joined with the
	// multi-value delimiter instead of flattened).
	WebsiteColumns []string
	// TextColumns are free-text fields eligible for encoding repair.
	TextColumns []string
	// NameColumn receives the fixed-list clerical corrections.
	NameColumn string
	// AuthorityColumn and the country column form the composite row key
	// for duplicate identifiers.
	AuthorityColumn string
	// MergeDuplicateIdentifiers enables the duplicate-LEI merge pass.
	// Off for registers where one LEI legitimately spans rows.
	MergeDuplicateIdentifiers bool
}

var registers = map[Type]Register{
	CASP: {
		Type: CASP,
		RequiredColumns: []string{
			"ae_lei",
			"ac_serviceCode",
			"ac_serviceCode_cou",
			"ac_authorisationNotificationDate",
			"ac_lastupdate",
		},
		DateColumns: []string{
			"ac_authorisationNotificationDate",
			"ac_authorisationEndDate",
			"ac_lastupdate",
		},
		ServiceCodeColumn: "ac_serviceCode",
		CountryCodeColumn: "ac_serviceCode_cou",
		WebsiteColumns:    []string{"ae_website", "ae_website_platform"},
		TextColumns: []string{
			"ae_lei_name", "ae_commercial_name", "ae_address",
			"ae_competentAuthority", "ac_comments",
		},
		NameColumn:                "ae_commercial_name",
		AuthorityColumn:           "ae_competentAuthority",
		MergeDuplicateIdentifiers: true,
	},
	Other: {
		Type: Other,
		RequiredColumns: []string{
			"ae_lei",
			"wp_lastupdate",
		},
		DateColumns:       []string{"wp_lastupdate"},
		CountryCodeColumn: "ae_offerCode_cou",
		WebsiteColumns:    []string{"wp_url"},
		TextColumns: []string{
			"ae_lei_name", "ae_lei_name_casp",
			"ae_competentAuthority", "wp_comments",
		},
		AuthorityColumn: "ae_competentAuthority",
		// One LEI may carry many white papers; rows stay separate.
		MergeDuplicateIdentifiers: false,
	},
	ART: {
		Type: ART,
		RequiredColumns: []string{
			"ae_lei",
			"ac_authorisationNotificationDate",
			"wp_lastupdate",
		},
		DateColumns: []string{
			"ac_authorisationNotificationDate",
			"ac_authorisationEndDate",
			"wp_authorisationNotificationDate",
			"wp_lastupdate",
		},
		CountryCodeColumn: "wp_url_cou",
		WebsiteColumns:    []string{"ae_website", "wp_url"},
		TextColumns: []string{
			"ae_lei_name", "ae_commercial_name", "ae_address",
			"ae_competentAuthority", "wp_comments",
		},
		NameColumn:                "ae_commercial_name",
		AuthorityColumn:           "ae_competentAuthority",
		MergeDuplicateIdentifiers: false,
	},
	EMT: {
		Type: EMT,
		RequiredColumns: []string{
			"ae_lei",
			"ac_authorisationNotificationDate",
			"wp_lastupdate",
		},
		DateColumns: []string{
			"ac_authorisationNotificationDate",
			"ac_authorisationEndDate",
			"wp_authorisationNotificationDate",
			"wp_lastupdate",
		},
		WebsiteColumns: []string{"ae_website", "wp_url"},
		TextColumns: []string{
			"ae_lei_name", "ae_commercial_name", "ae_address",
			"ae_competentAuthority", "ae_authorisation_other_emt",
			"wp_comments",
		},
		NameColumn:                "ae_commercial_name",
		AuthorityColumn:           "ae_competentAuthority",
		MergeDuplicateIdentifiers: false,
	},
	NCASP: {
		Type: NCASP,
		RequiredColumns: []string{
			"ae_lei",
			"ae_lastupdate",
		},
		DateColumns:    []string{"ae_decision_date", "ae_lastupdate"},
		WebsiteColumns: []string{"ae_website"},
		TextColumns: []string{
			"ae_lei_name", "ae_commercial_name",
			"ae_competentAuthority", "ae_infrigment",
			"ae_reason", "ae_comments",
		},
		NameColumn:                "ae_commercial_name",
		AuthorityColumn:           "ae_competentAuthority",
		MergeDuplicateIdentifiers: false,
	},
}

// Get returns the register config for a type name (case-insensitive).
func Get(name string) (Register, error) {
	reg, ok := registers[Type(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return Register{}, fmt.Errorf("unknown register %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return reg, nil
}

// Names lists all register type names, sorted.
func Names() []string {
	names := make([]string, 0, len(registers))
	for t := range registers {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

// IsDateColumn reports whether col is one of the register's date columns.
func (r Register) IsDateColumn(col string) bool {
	for _, c := range r.DateColumns {
		if c == col {
			return true
		}
	}
	return false
}

// IsWebsiteColumn reports whether col tolerates multiline/multi-URL values.
func (r Register) IsWebsiteColumn(col string) bool {
	for _, c := range r.WebsiteColumns {
		if c == col {
			return true
		}
	}
	return false
}

// IsTextColumn reports whether col is eligible for encoding repair.
func (r Register) IsTextColumn(col string) bool {
	for _, c := range r.TextColumns {
		if c == col {
			return true
		}
	}
	return false
}
