package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

// DefaultGarage61Endpoint is the base URL of the Garage61 API.
const DefaultGarage61Endpoint = "https://garage61.net/api"

const fetchTimeout = 10 * time.Second

// Garage61 fetches team rosters from Garage61.
type Garage61 struct {
	Endpoint string
	Client   *http.Client
}

// NewGarage61 returns a fetcher for the public Garage61 API.
func NewGarage61() Garage61 {
	return Garage61{
		Endpoint: DefaultGarage61Endpoint,
		Client:   &http.Client{Timeout: fetchTimeout},
	}
}

type driversResponse struct {
	Drivers []struct {
		Name string `json:"name"`
	} `json:"drivers"`
}

// Fetch returns the cleaned names of the drivers in the team. All failures
// are returned as an errors.RosterFetchFailure.
func (g Garage61) Fetch(ctx context.Context, teamID, apiKey string) ([]string, error) {
	names, err := g.fetch(ctx, teamID, apiKey)
	if err != nil {
		return nil, errors.RosterFetchFailure{Err: err}
	}
	return names, nil
}

func (g Garage61) fetch(ctx context.Context, teamID, apiKey string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/teams/%s/drivers", g.Endpoint, url.PathEscape(teamID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.WithContext(err, "make request")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var body driversResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.WithContext(err, "decode response")
	}

	var names []string
	for _, driver := range body.Drivers {
		if name := CleanName(driver.Name); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
