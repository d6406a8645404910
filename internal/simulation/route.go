package simulation

// Route is the operating environment a simulated vehicle drives in.
type Route string

const (
	RouteHighway     Route = "highway"
	RouteDowntown    Route = "downtown"
	RouteResidential Route = "residential"
	RouteIndustrial  Route = "industrial"
	RouteSuburban    Route = "suburban"
)

// routeProfile parameterizes movement and speed for a route.
type routeProfile struct {
	// rangeLat and rangeLng bound the initial heading components.
	rangeLat, rangeLng float64
	multiplier         float64
	baseSpeed          float64
}

var profiles = map[Route]routeProfile{
	RouteHighway:     {rangeLat: 0.002, rangeLng: 0.005, multiplier: 1.2, baseSpeed: 65},
	RouteDowntown:    {rangeLat: 0.001, rangeLng: 0.001, multiplier: 0.6, baseSpeed: 25},
	RouteResidential: {rangeLat: 0.0015, rangeLng: 0.0015, multiplier: 0.8, baseSpeed: 35},
	RouteIndustrial:  {rangeLat: 0.0012, rangeLng: 0.002, multiplier: 1.0, baseSpeed: 45},
	RouteSuburban:    {rangeLat: 0.0018, rangeLng: 0.0025, multiplier: 0.9, baseSpeed: 40},
}

var defaultProfile = routeProfile{rangeLat: 0.001, rangeLng: 0.002, multiplier: 1.0, baseSpeed: 40}

func (r Route) profile() routeProfile {
	if p, ok := profiles[r]; ok {
		return p
	}
	return defaultProfile
}

// SpeedMultiplier scales base speed, displacement and fuel burn.
func (r Route) SpeedMultiplier() float64 { return r.profile().multiplier }

func (r Route) BaseSpeed() float64 { return r.profile().baseSpeed }

// Valid reports whether r is one of the known routes.
func (r Route) Valid() bool {
	_, ok := profiles[r]
	return ok
}
