// internal/models/query_types.go
package models

import "strings"

// QueryType is the intent category assigned to a company question.
type QueryType string

const (
	QueryTypeLocation      QueryType = "location"
	QueryTypeBusinessModel QueryType = "business_model"
	QueryTypeInvestments   QueryType = "investments"
	QueryTypeNews          QueryType = "news"
	QueryTypeCustomers     QueryType = "customers"
	QueryTypeGeneral       QueryType = "general"
)

var knownQueryTypes = map[QueryType]bool{
	QueryTypeLocation:      true,
	QueryTypeBusinessModel: true,
	QueryTypeInvestments:   true,
	QueryTypeNews:          true,
	QueryTypeCustomers:     true,
	QueryTypeGeneral:       true,
}

// ParseQueryType maps a model-supplied category onto a known QueryType,
// falling back to general for anything unrecognised.
func ParseQueryType(s string) QueryType {
	qt := QueryType(strings.ToLower(strings.TrimSpace(s)))
	if knownQueryTypes[qt] {
		return qt
	}
	return QueryTypeGeneral
}

func (q QueryType) String() string {
	return string(q)
}
