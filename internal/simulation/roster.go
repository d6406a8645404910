package simulation

import "fleetpulse/internal/domain/telemetry"

// VehicleSpec is the fixed identity of a simulated vehicle.
type VehicleSpec struct {
	ID    string
	Name  string
	Type  string
	Route Route
	Base  telemetry.Location
}

// DefaultRoster is the fleet the engine drives when none is configured.
func DefaultRoster() []VehicleSpec {
	return []VehicleSpec{
		{ID: "van-001", Name: "Delivery Van 001", Type: "delivery", Route: RouteDowntown, Base: telemetry.Location{Lat: 37.7749, Lng: -122.4194}},
		{ID: "van-002", Name: "Delivery Van 002", Type: "delivery", Route: RouteSuburban, Base: telemetry.Location{Lat: 37.7849, Lng: -122.4094}},
		{ID: "truck-001", Name: "Cargo Truck 001", Type: "cargo", Route: RouteHighway, Base: telemetry.Location{Lat: 37.7649, Lng: -122.4294}},
		{ID: "van-003", Name: "Delivery Van 003", Type: "delivery", Route: RouteResidential, Base: telemetry.Location{Lat: 37.7549, Lng: -122.4394}},
		{ID: "truck-002", Name: "Cargo Truck 002", Type: "cargo", Route: RouteIndustrial, Base: telemetry.Location{Lat: 37.7949, Lng: -122.3994}},
	}
}
