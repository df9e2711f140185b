package glowmarkt

// Resource is a single meter/utility stream belonging to an entity.
type Resource struct {
	Name           string `json:"name"`
	ResourceID     string `json:"resourceId"`
	ResourceTypeID string `json:"resourceTypeId"`
}

// Entity is a virtual entity (account/property) grouping resources.
type Entity struct {
	VeID      string     `json:"veId"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	OwnerID   string     `json:"ownerId"`
	Resources []Resource `json:"resources"`
}

// Query echoes the readings query parameters back in the response.
type Query struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Period   string `json:"period"`
	Function string `json:"function"`
}

// Reading is the result of querying one resource over one window.
// Data rows are [epochSeconds, value] pairs in ascending time order.
type Reading struct {
	Status         string      `json:"status"`
	Name           string      `json:"name"`
	ResourceID     string      `json:"resourceId"`
	ResourceTypeID string      `json:"resourceTypeId"`
	Classifier     string      `json:"classifier"`
	Units          string      `json:"units"`
	Query          Query       `json:"query"`
	Data           [][]float64 `json:"data"`
}
