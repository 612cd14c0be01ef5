package service

import (
	"fmt"
	"time"

	"github.com/bluetrack/tracking-backend-go/internal/models"
	"github.com/bluetrack/tracking-backend-go/internal/repository"
	"github.com/bluetrack/tracking-backend-go/internal/spatial"
)

// PositionService is the read surface over the position store for
// external reporting collaborators.
type PositionService struct {
	positionRepo *repository.PositionRepository

	now func() time.Time
}

// NewPositionService creates a new position service
func NewPositionService(positionRepo *repository.PositionRepository) *PositionService {
	return &PositionService{
		positionRepo: positionRepo,
		now:          time.Now,
	}
}

// RecentPositions retrieves an account's fixes within the window,
// newest first, with the cumulative travel distance over the window.
func (s *PositionService) RecentPositions(filter models.PositionFilter) (*models.PositionsResponse, error) {
	if filter.AccountID == "" {
		return nil, fmt.Errorf("accountId is required")
	}
	if filter.WindowHours < 1 {
		filter.WindowHours = 24
	}
	if filter.Limit < 1 {
		filter.Limit = 1000
	}
	if filter.Limit > 10000 {
		filter.Limit = 10000
	}

	window := time.Duration(filter.WindowHours) * time.Hour
	fixes, err := s.positionRepo.RecentByAccount(filter.AccountID, window, filter.Limit, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get recent positions: %w", err)
	}

	return &models.PositionsResponse{
		Data:           fixes,
		Total:          len(fixes),
		WindowHours:    filter.WindowHours,
		DistanceMeters: travelDistance(fixes),
		Zone:           activityZone(fixes),
	}, nil
}

// activityZone summarizes where the fixes cluster: their spherical
// centroid and the radius covering the farthest fix. A single fix has
// no meaningful radius, so the zone needs at least two.
func activityZone(fixes []models.Fix) *models.ActivityZone {
	if len(fixes) < 2 {
		return nil
	}

	points := make([][2]float64, len(fixes))
	for i, f := range fixes {
		points[i] = [2]float64{f.Latitude, f.Longitude}
	}

	lat, lon := spatial.Centroid(points)
	return &models.ActivityZone{
		CenterLatitude:  lat,
		CenterLongitude: lon,
		RadiusMeters:    spatial.BoundingRadius(points),
	}
}

// travelDistance sums haversine legs between consecutive fixes. The
// input is newest-first; leg order does not matter for the sum.
func travelDistance(fixes []models.Fix) float64 {
	var total float64
	for i := 1; i < len(fixes); i++ {
		total += spatial.HaversineDistance(
			fixes[i-1].Latitude, fixes[i-1].Longitude,
			fixes[i].Latitude, fixes[i].Longitude,
		)
	}
	return total
}
