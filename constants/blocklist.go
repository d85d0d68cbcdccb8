package constants

// DefaultNameBlocklist lists institutional terms that disqualify a line from
// being treated as a holder name. Institutions may replace it via config.
var DefaultNameBlocklist = []string{
	"certificate",
	"university",
	"professor",
	"completion",
	"of",
	"the",
	"by",
	"department",
	"education",
}
