package interfaces

import (
	"context"

	"github.com/ternarybob/jobrunner/internal/models"
)

// WeatherService fetches current conditions from the external weather
// endpoint. Failures here are never fatal to a run.
type WeatherService interface {
	Current(ctx context.Context) (*models.WeatherConditions, error)
}
