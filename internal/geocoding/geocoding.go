// Package geocoding resolves addresses and driving routes through the
// Google Maps Platform.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"delivery/internal/domain"
)

// ErrNoResults is returned when the provider found nothing for a query.
var ErrNoResults = errors.New("no results")

// Error wraps a provider failure with the status it reported.
type Error struct {
	Op     string
	Status string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Place is a resolved address.
type Place struct {
	Location         domain.Coordinates
	FormattedAddress string
}

// Leg is one hop of a route.
type Leg struct {
	DistanceMetres int64
	Duration       time.Duration
}

// Route is a driving route from an origin through a list of stops.
// WaypointOrder, when set, is the provider's suggested order of the
// intermediate stops.
type Route struct {
	Legs          []Leg
	WaypointOrder []int
}

// DistanceMetres is the total length of the route.
func (r *Route) DistanceMetres() int64 {
	var total int64
	for _, l := range r.Legs {
		total += l.DistanceMetres
	}
	return total
}

// Duration is the total driving time of the route.
func (r *Route) Duration() time.Duration {
	var total time.Duration
	for _, l := range r.Legs {
		total += l.Duration
	}
	return total
}

// Client calls the Geocoding and Directions APIs.
type Client struct {
	client *maps.Client
	region string
}

// NewClient creates a new Client with the given API key.
func NewClient(apiKey string, region string) (*Client, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Client{client: client, region: region}, nil
}

// Geocode resolves an address to coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (*Place, error) {
	results, err := c.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  c.region,
	})
	if err != nil {
		return nil, wrap("geocode", err)
	}

	if len(results) == 0 {
		return nil, &Error{Op: "geocode", Status: "ZERO_RESULTS", Err: ErrNoResults}
	}

	r := results[0]
	return &Place{
		Location:         domain.Coordinates{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
		FormattedAddress: r.FormattedAddress,
	}, nil
}

// Route computes a driving route from origin visiting stops in order. The
// last stop is the destination; the others are waypoints the provider may
// reorder.
func (c *Client) Route(ctx context.Context, origin domain.Coordinates, stops []domain.Coordinates) (*Route, error) {
	if len(stops) == 0 {
		return nil, &Error{Op: "directions", Err: errors.New("at least one stop is required")}
	}

	req := &maps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(stops[len(stops)-1]),
		Mode:        maps.TravelModeDriving,
		Region:      c.region,
	}
	if waypoints := stops[:len(stops)-1]; len(waypoints) > 0 {
		req.Optimize = true
		for _, w := range waypoints {
			req.Waypoints = append(req.Waypoints, latLng(w))
		}
	}

	routes, _, err := c.client.Directions(ctx, req)
	if err != nil {
		return nil, wrap("directions", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, &Error{Op: "directions", Status: "ZERO_RESULTS", Err: ErrNoResults}
	}

	route := &Route{WaypointOrder: routes[0].WaypointOrder}
	for _, leg := range routes[0].Legs {
		route.Legs = append(route.Legs, Leg{
			DistanceMetres: int64(leg.Distance.Meters),
			Duration:       leg.Duration,
		})
	}
	return route, nil
}

func latLng(c domain.Coordinates) string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lng)
}

// wrap extracts the provider status from errors of the form
// "maps: STATUS - message".
func wrap(op string, err error) error {
	status := ""
	if msg := err.Error(); strings.HasPrefix(msg, "maps: ") {
		rest := strings.TrimPrefix(msg, "maps: ")
		if i := strings.Index(rest, " - "); i > 0 {
			status = rest[:i]
		}
	}
	return &Error{Op: op, Status: status, Err: err}
}
