// Package routing implements the blue/green routing decision: path classification,
// sticky cookie extraction, per-client hashing and the weight policy that picks an
// origin for every request.
package routing

import "github.com/mir00r/edge-router/internal/domain"

// Outcome is the origin picked by Decide
type Outcome struct {
	Origin domain.OriginID
	Color  domain.Color
	Source domain.DecisionSource
	// Hash is set only when the client hash was computed
	Hash *int
}

// Decide picks the origin for a request in precedence order: a valid sticky
// override, then weight 0 (blue) or 100 (green), then the client hash compared
// against the weight. Hashes in 0..weight go to blue, the rest to green.
//
// Weights outside [0,100] are not clamped; they fall through to the comparison,
// so a negative weight sends everyone to green and a weight above 100 to blue.
func Decide(route domain.DomainRoute, sticky domain.StickyOverride, cfg domain.RoutingConfig, clientAddress string) Outcome {
	if sticky.Valid {
		return Outcome{
			Origin: route.Origin(sticky.Color),
			Color:  sticky.Color,
			Source: domain.SourceCookie,
		}
	}

	switch cfg.Weight {
	case 0:
		return weighted(route, domain.Blue, nil)
	case 100:
		return weighted(route, domain.Green, nil)
	}

	h := HashClient(clientAddress)
	if h > cfg.Weight {
		return weighted(route, domain.Green, &h)
	}
	return weighted(route, domain.Blue, &h)
}

func weighted(route domain.DomainRoute, c domain.Color, hash *int) Outcome {
	return Outcome{
		Origin: route.Origin(c),
		Color:  c,
		Source: domain.SourceWeight,
		Hash:   hash,
	}
}
