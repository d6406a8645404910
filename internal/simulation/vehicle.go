package simulation

import (
	"math"
	"math/rand/v2"
	"time"

	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/ingestion"
)

// Model constants.
const (
	drift             = 0.1
	displacementScale = 0.0001
	reverseChance     = 0.05

	minLat, maxLat = 37.7, 37.8
	minLng, maxLng = -122.5, -122.3

	speedNoise       = 15.0 // full width, so ±7.5
	maxTargetSpeed   = 100.0
	ambientTemp      = 75.0
	tempPerMph       = 0.15
	tempNoise        = 10.0
	fuelBurnNoise    = 0.05
	refuelBelow      = 10.0
	refuelChance     = 0.1
	humidityNoise    = 5.0
	minHumidity      = 20.0
	maxHumidity      = 80.0
	jamChance        = 0.1
	jamFactor        = 0.3
	clearRoadChance  = 0.05
	clearRoadFactor  = 1.2
	initialTemp      = 75.0
	initialFuel      = 100.0
	initialHumidity  = 50.0
)

// Vehicle is the mutable state of one simulated vehicle. It is not safe
// for concurrent use.
type Vehicle struct {
	Spec     VehicleSpec
	Location telemetry.Location

	Temperature float64
	Speed       float64
	Fuel        float64
	Humidity    float64

	dirLat, dirLng float64
	multiplier     float64
}

// NewVehicle places a vehicle at its base location, parked and fully fuelled,
// with a random heading bounded by its route.
func NewVehicle(spec VehicleSpec, rng *rand.Rand) *Vehicle {
	p := spec.Route.profile()
	return &Vehicle{
		Spec:        spec,
		Location:    spec.Base,
		Temperature: initialTemp,
		Fuel:        initialFuel,
		Humidity:    initialHumidity,
		dirLat:      (rng.Float64() - 0.5) * p.rangeLat,
		dirLng:      (rng.Float64() - 0.5) * p.rangeLng,
		multiplier:  p.multiplier,
	}
}

// Step advances the vehicle by one tick: it moves on the previous speed
// and then samples new metrics.
func (v *Vehicle) Step(rng *rand.Rand) {
	v.move(rng)
	v.sample(rng)
}

func (v *Vehicle) move(rng *rand.Rand) {
	v.dirLat += (rng.Float64() - 0.5) * drift
	v.dirLng += (rng.Float64() - 0.5) * drift
	if mag := math.Hypot(v.dirLat, v.dirLng); mag > 0 {
		v.dirLat /= mag
		v.dirLng /= mag
	}

	scale := (v.Speed / 100) * v.multiplier * displacementScale
	v.Location.Lat = telemetry.Clamp(v.Location.Lat+v.dirLat*scale, minLat, maxLat)
	v.Location.Lng = telemetry.Clamp(v.Location.Lng+v.dirLng*scale, minLng, maxLng)

	if rng.Float64() < reverseChance {
		v.dirLat, v.dirLng = -v.dirLat, -v.dirLng
	}
}

func (v *Vehicle) sample(rng *rand.Rand) {
	target := v.Spec.Route.BaseSpeed()*v.multiplier + (rng.Float64()-0.5)*speedNoise
	v.Speed = telemetry.Clamp(target, 0, maxTargetSpeed)

	v.Temperature = math.Round(ambientTemp + v.Speed*tempPerMph + (rng.Float64()-0.5)*tempNoise)

	if v.Speed > 0 {
		burn := (v.Speed/1000)*v.multiplier + rng.Float64()*fuelBurnNoise
		v.Fuel = math.Max(0, v.Fuel-burn)
	}
	if v.Fuel < refuelBelow && rng.Float64() < refuelChance {
		v.Fuel = initialFuel
	}

	v.Humidity = telemetry.Clamp(v.Humidity+(rng.Float64()-0.5)*humidityNoise, minHumidity, maxHumidity)

	// Traffic only affects the speed reported for this tick.
	if rng.Float64() < jamChance {
		v.Speed *= jamFactor
	} else if rng.Float64() < clearRoadChance {
		v.Speed *= clearRoadFactor
	}
}

// Reading returns the vehicle state as an ingestion payload stamped at now.
func (v *Vehicle) Reading(now time.Time) *ingestion.ReadingPayload {
	ts := float64(now.UnixMilli())
	return &ingestion.ReadingPayload{
		DeviceID:  v.Spec.ID,
		Timestamp: &ts,
		Location:  v.locationPayload(),
		Metrics:   v.metricsPayload(),
	}
}

// Registration returns the upsert request announcing the vehicle.
func (v *Vehicle) Registration() *ingestion.RegisterDeviceRequest {
	return &ingestion.RegisterDeviceRequest{
		DeviceID: v.Spec.ID,
		Name:     v.Spec.Name,
		Type:     v.Spec.Type,
		Location: v.locationPayload(),
		Metrics:  v.metricsPayload(),
	}
}

func (v *Vehicle) locationPayload() *ingestion.LocationPayload {
	lat, lng := v.Location.Lat, v.Location.Lng
	return &ingestion.LocationPayload{Lat: &lat, Lng: &lng}
}

func (v *Vehicle) metricsPayload() *ingestion.MetricsPayload {
	temp, speed, fuel, humidity := v.Temperature, v.Speed, v.Fuel, v.Humidity
	return &ingestion.MetricsPayload{Temperature: &temp, Speed: &speed, Fuel: &fuel, Humidity: &humidity}
}

// Heading returns the current unit direction vector.
func (v *Vehicle) Heading() (lat, lng float64) { return v.dirLat, v.dirLng }
