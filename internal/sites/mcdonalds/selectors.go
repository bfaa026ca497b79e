package mcdonalds

// DefaultBaseURL is the outlet locator page.
const DefaultBaseURL = "https://www.mcdonalds.com.my/locate-us"

// Search form.
const (
	searchInputSelector  = "input[type='text'][id='address'][name='address']"
	searchButtonSelector = ".btnSearchNow"
)

// Result cards and the fields inside one card.
const (
	cardSelector          = ".addressBox"
	nameSelector          = ".addressTitle strong"
	addressTextSelector   = ".addressText"
	tooltipTextSelector   = ".ed-tooltiptext"
	tooltipAnchorSelector = "a.ed-tooltip"
	addressTopSelector    = ".addressTop"
	jsonLDSelector        = "script[type='application/ld+json']"
	telLinkSelector       = "a[href*='tel:']"
)

// nextPageSelectors are tried in order; the site has served both markups.
var nextPageSelectors = []string{
	".pagination .next:not(.disabled)",
	".next-page:not(.disabled)",
}
