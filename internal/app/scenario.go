package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/daypulse/internal/geo"
	"github.com/rcliao/daypulse/internal/model"
)

// Scenario is a YAML file of regions and the notifications bound to them:
//
//	regions:
//	  - id: park
//	    name: Central Park
//	    center: {latitude: 40.785, longitude: -73.968}
//	    radius_meters: 500
//	notifications:
//	  - id: park-hello
//	    title: Welcome to the park
//	    category: nearby
//	    geofence_id: park
//	    trigger: enter
type Scenario struct {
	Regions       []model.GeofenceRegion `yaml:"regions"`
	Notifications []ScenarioNotification `yaml:"notifications"`
}

// ScenarioNotification is the YAML form of a location notification.
type ScenarioNotification struct {
	ID         string            `yaml:"id"`
	Title      string            `yaml:"title"`
	Body       string            `yaml:"body"`
	Category   string            `yaml:"category"`
	ImageURL   string            `yaml:"image_url"`
	ActionURL  string            `yaml:"action_url"`
	Data       map[string]string `yaml:"data"`
	GeofenceID string            `yaml:"geofence_id"`
	Trigger    model.Trigger     `yaml:"trigger"`
}

// LocationNotification converts the YAML form.
func (n ScenarioNotification) LocationNotification() model.LocationNotification {
	return model.LocationNotification{
		NotificationRequest: model.NotificationRequest{
			ID:        n.ID,
			Title:     n.Title,
			Body:      n.Body,
			Category:  n.Category,
			ImageURL:  n.ImageURL,
			ActionURL: n.ActionURL,
			Data:      n.Data,
		},
		GeofenceID: n.GeofenceID,
		Trigger:    n.Trigger,
	}
}

// ParseScenario decodes a scenario and validates its regions.
func ParseScenario(data []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	regions, err := geo.LoadRegions(data)
	if err != nil {
		return Scenario{}, err
	}
	sc.Regions = regions
	return sc, nil
}

// LoadScenarioFile reads and parses a scenario file.
func LoadScenarioFile(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	return ParseScenario(data)
}

// Apply registers the scenario's regions with the monitor and its
// notifications with the scheduler.
func (a *App) Apply(ctx context.Context, sc Scenario) error {
	for _, r := range sc.Regions {
		if err := a.Monitor.RegisterRegion(r, nil); err != nil {
			return fmt.Errorf("region %s: %w", r.ID, err)
		}
	}
	for _, n := range sc.Notifications {
		if err := a.Scheduler.RegisterLocationNotification(ctx, n.LocationNotification()); err != nil {
			return fmt.Errorf("notification %s: %w", n.ID, err)
		}
	}
	a.log.Info("scenario applied",
		zap.Int("regions", len(sc.Regions)),
		zap.Int("notifications", len(sc.Notifications)))
	return nil
}

// Replay streams the location source through the monitor until the source
// is exhausted or ctx is done. Sources that never end run until ctx is done.
func (a *App) Replay(ctx context.Context, onSample func(model.LocationSample)) error {
	if err := a.Monitor.StartContinuousUpdates(ctx, onSample); err != nil {
		return fmt.Errorf("start location updates: %w", err)
	}
	defer a.Monitor.Stop()

	select {
	case <-a.Monitor.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
