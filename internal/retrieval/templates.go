package retrieval

import (
	"fmt"
	"time"

	"company-intel/internal/models"
)

// QueryBuilder turns an intent into the provider query string. It returns
// "" when the intent names no company.
type QueryBuilder func(intent *models.Intent, now time.Time) string

var encyclopediaTemplates = map[models.QueryType]string{
	models.QueryTypeLocation:      "%s headquarters location company",
	models.QueryTypeBusinessModel: "%s business model revenue",
	models.QueryTypeInvestments:   "%s investments portfolio companies",
	models.QueryTypeNews:          "%s company recent developments",
	models.QueryTypeCustomers:     "%s customers clients",
	models.QueryTypeGeneral:       "%s company information",
}

// EncyclopediaQuery builds the lookup for the encyclopedia source.
func EncyclopediaQuery(intent *models.Intent, _ time.Time) string {
	company, ok := intent.PrimaryCompany()
	if !ok {
		return ""
	}
	tmpl, ok := encyclopediaTemplates[intent.QueryType]
	if !ok {
		tmpl = "%s company"
	}
	return fmt.Sprintf(tmpl, company)
}

var webTemplates = map[models.QueryType]string{
	models.QueryTypeLocation:      "%s headquarters current location",
	models.QueryTypeBusinessModel: "How does %s make money business model",
	models.QueryTypeInvestments:   "%s investment portfolio companies",
	models.QueryTypeCustomers:     "%s main customers current",
	models.QueryTypeGeneral:       "%s company overview current",
}

// WebQuery builds the web search query. News queries are restricted to
// the last seven days and any classifier time constraint is appended.
func WebQuery(intent *models.Intent, now time.Time) string {
	company, ok := intent.PrimaryCompany()
	if !ok {
		return ""
	}

	var q string
	switch tmpl, known := webTemplates[intent.QueryType]; {
	case intent.QueryType == models.QueryTypeNews:
		q = fmt.Sprintf("latest news about %s after:%s", company, now.AddDate(0, 0, -7).Format("2006-01-02"))
	case known:
		q = fmt.Sprintf(tmpl, company)
	default:
		q = fmt.Sprintf("%s company information", company)
	}

	if intent.TimeConstraint != nil && *intent.TimeConstraint != "" {
		q += " " + *intent.TimeConstraint
	}
	return q
}
