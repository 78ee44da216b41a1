package semanticlayer

// Metric describes one metric defined in the semantic layer.
type Metric struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Dimension describes one dimension queryable for a set of metrics.
type Dimension struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Label         string   `json:"label"`
	Description   string   `json:"description"`
	Granularities []string `json:"granularities,omitempty"`
}

// Entity describes one entity associated with a set of metrics.
type Entity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}
