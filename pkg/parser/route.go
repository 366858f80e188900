package parser

import (
	"strings"

	"github.com/tzl-ops/flightarchive/internal/model"
)

// RouteTokens splits a route string on '-' and returns the upper-cased,
// non-empty airport tokens in order.
func RouteTokens(raw string) []string {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// ParseRoute resolves a route string to its canonical endpoints.
//
//	"TZL-AYT"         -> TZL -> AYT
//	"TZL-DTM-TZL"     -> TZL -> DTM  (outbound leg of a round trip)
//	"TZL-MUC-FRA-TZL" -> TZL -> TZL  (first and last token)
func ParseRoute(raw string) (*model.RouteEndpoints, error) {
	if IsSentinel(raw) {
		return nil, ErrRouteEmpty
	}

	tokens := RouteTokens(raw)
	switch {
	case len(tokens) < 2:
		return nil, ErrRouteTooShort
	case len(tokens) == 3:
		return &model.RouteEndpoints{Departure: tokens[0], Arrival: tokens[1]}, nil
	default:
		return &model.RouteEndpoints{Departure: tokens[0], Arrival: tokens[len(tokens)-1]}, nil
	}
}

// Legs returns every consecutive leg of a route: "A-B-C" yields A->B and B->C.
// Routes with fewer than two tokens have no legs.
func Legs(raw string) []model.RouteEndpoints {
	tokens := RouteTokens(raw)
	if len(tokens) < 2 {
		return nil
	}
	legs := make([]model.RouteEndpoints, 0, len(tokens)-1)
	for i := 0; i+1 < len(tokens); i++ {
		legs = append(legs, model.RouteEndpoints{Departure: tokens[i], Arrival: tokens[i+1]})
	}
	return legs
}
