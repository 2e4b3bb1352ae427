package heuristics

// SeedBlacklist lists registrable domains that are high-traffic but almost
// never host support services. Patterns use the breaker's syntax: an exact
// domain, or "*.suffix" for every domain under a suffix.
var SeedBlacklist = []string{
	// News.
	"bbc.co.uk",
	"bbc.com",
	"theguardian.com",
	"independent.co.uk",
	"telegraph.co.uk",
	"dailymail.co.uk",
	"thetimes.co.uk",
	"thescottishsun.co.uk",
	"thesun.co.uk",
	"mirror.co.uk",
	"dailyrecord.co.uk",
	"scotsman.com",
	"heraldscotland.com",
	"stv.tv",
	"reuters.com",
	"nytimes.com",
	"cnn.com",
	"huffingtonpost.co.uk",
	// Reference.
	"wikipedia.org",
	"wikimedia.org",
	"wikidata.org",
	"wiktionary.org",
	"fandom.com",
	// Statistics portals.
	"ons.gov.uk",
	"statistics.gov.scot",
	"nrscotland.gov.uk",
	"data.gov.uk",
	// Crowdfunding and ticketing.
	"gofundme.com",
	"justgiving.com",
	"crowdfunder.co.uk",
	"kickstarter.com",
	"eventbrite.co.uk",
	"eventbrite.com",
	"ticketmaster.co.uk",
	// Social and video platforms.
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"linkedin.com",
	"youtube.com",
	"tiktok.com",
}
