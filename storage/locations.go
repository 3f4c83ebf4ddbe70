package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chanakanakandala/ikman-lk-housing-data/models"
)

// LoadLocations reads the static location registry, a JSON array of
// {id, name, slug} objects.
func LoadLocations(path string) ([]models.Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("locations: read %q: %w", path, err)
	}

	var locations []models.Location
	if err := json.Unmarshal(data, &locations); err != nil {
		return nil, fmt.Errorf("locations: parse %q: %w", path, err)
	}
	return locations, nil
}
