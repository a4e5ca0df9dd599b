package cache

import (
	"time"

	"company-intel/internal/models"
)

// Category selects an expiry from the TTL table.
type Category string

const (
	CategoryNews       Category = "news"
	CategoryLocation   Category = "location"
	CategoryBusiness   Category = "business"
	CategoryInvestment Category = "investment"
	CategoryGeneral    Category = "general"
)

const (
	TTLNews       = 3600 * time.Second
	TTLLocation   = 604800 * time.Second
	TTLBusiness   = 43200 * time.Second
	TTLInvestment = 21600 * time.Second
	TTLDefault    = 86400 * time.Second
)

var ttlTable = map[Category]time.Duration{
	CategoryNews:       TTLNews,
	CategoryLocation:   TTLLocation,
	CategoryBusiness:   TTLBusiness,
	CategoryInvestment: TTLInvestment,
	CategoryGeneral:    TTLDefault,
}

// ResolveTTL returns the expiry for a category; unknown categories get the
// general TTL.
func ResolveTTL(c Category) time.Duration {
	if ttl, ok := ttlTable[c]; ok {
		return ttl
	}
	return TTLDefault
}

// CategoryFor maps an intent category to its cache category. Customers
// questions have no dedicated row and use the general TTL.
func CategoryFor(qt models.QueryType) Category {
	switch qt {
	case models.QueryTypeNews:
		return CategoryNews
	case models.QueryTypeLocation:
		return CategoryLocation
	case models.QueryTypeBusinessModel:
		return CategoryBusiness
	case models.QueryTypeInvestments:
		return CategoryInvestment
	default:
		return CategoryGeneral
	}
}
