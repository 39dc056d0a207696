package directory

import (
	"context"
	"sort"

	"SafeHaven/internal/geo"
	"SafeHaven/internal/models"

	"gorm.io/gorm"
)

// Candidate is a responder together with its distance to the alert
// origin at selection time.
type Candidate struct {
	models.Responder
	DistanceKM float64 `json:"distance_km"`
}

// Directory ranks available responders for dispatch. Reads go to the
// database on every call so availability flips take effect immediately.
type Directory struct {
	db *gorm.DB

	// When set, responders whose declared coverage radius does not
	// reach the origin are skipped instead of being ranked anyway.
	EnforceCoverageRadius bool
}

func New(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// FindNearest returns the closest available responder to origin whose
// ID is not in exclude, or nil when no candidate remains. Ties on
// distance resolve to the lower responder ID.
func (d *Directory) FindNearest(ctx context.Context, origin geo.Coordinate, exclude map[uint]struct{}) (*Candidate, error) {
	var responders []models.Responder
	q := d.db.WithContext(ctx).
		Where("is_available = ?", true).
		Where("latitude IS NOT NULL").
		Where("longitude IS NOT NULL")
	if err := q.Find(&responders).Error; err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(responders))
	for _, r := range responders {
		if _, skip := exclude[r.ID]; skip {
			continue
		}
		if !r.HasLocation() {
			continue
		}
		dist := geo.Distance(origin, geo.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude})
		if d.EnforceCoverageRadius && r.CoverageRadiusKM > 0 && dist > r.CoverageRadiusKM {
			continue
		}
		candidates = append(candidates, Candidate{Responder: r, DistanceKM: dist})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKM != candidates[j].DistanceKM {
			return candidates[i].DistanceKM < candidates[j].DistanceKM
		}
		return candidates[i].ID < candidates[j].ID
	})

	best := candidates[0]
	return &best, nil
}
