package registry

// ServiceDescriptions maps the closed service-code set (a-j) to the
// canonical descriptions published alongside the register.
var ServiceDescriptions = map[string]string{
	"a": "providing custody and administration of crypto-assets on behalf of clients",
	"b": "operation of a trading platform for crypto-assets",
	"c": "exchange of crypto-assets for funds",
	"d": "exchange of crypto-assets for other crypto-assets",
	"e": "execution of orders for crypto-assets on behalf of clients",
	"f": "placing of crypto-assets",
	"g": "reception and transmission of orders for crypto-assets on behalf of clients",
	"h": "providing advice on crypto-assets",
	"i": "providing portfolio management on crypto-assets",
	"j": "providing transfer services for crypto-assets on behalf of clients",
}

// CountryCodes is the closed vocabulary of accepted two-letter codes:
// EU + EEA plus UK and CH. EL is the EU-convention alias for Greece and is
// valid alongside GR.
var CountryCodes = map[string]bool{
	"AT": true, "BE": true, "BG": true, "CY": true, "CZ": true,
	"DE": true, "DK": true, "EE": true, "ES": true, "FI": true,
	"FR": true, "GR": true, "HR": true, "HU": true, "IE": true,
	"IS": true, "IT": true, "LI": true, "LT": true, "LU": true,
	"LV": true, "MT": true, "NL": true, "NO": true, "PL": true,
	"PT": true, "RO": true, "SE": true, "SI": true, "SK": true,
	"EL": true,
	"GB": true, "UK": true,
	"CH": true,
}

// CountryAliases maps legacy codes to their canonical form. When an alias
// appears in a multi-value field, normalization keeps both members because
// both remain valid set members.
var CountryAliases = map[string]string{
	"EL": "GR",
}

// KnownValueCorrections fixes recurring clerical errors seen across
// published extracts. Matching is exact on the already-trimmed value.
var KnownValueCorrections = map[string]string{
	"e Toro": "eToro",
}
