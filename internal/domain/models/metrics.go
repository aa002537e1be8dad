package models

// Metrics holds the derived totals of a sale, or the field-wise sum of several.
type Metrics struct {
	FullWeight       float64 `json:"full_weight"`
	FullCount        int     `json:"full_count"`
	EmptyWeight      float64 `json:"empty_weight"`
	EmptyCount       int     `json:"empty_count"`
	DeadWeight       float64 `json:"dead_weight"`
	DeadCount        int     `json:"dead_count"`
	AvgTare          float64 `json:"avg_tare"`
	TotalTare        float64 `json:"total_tare"`
	NetWeight        float64 `json:"net_weight"`
	TotalBirds       int     `json:"total_birds"`
	AvgWeightPerBird float64 `json:"avg_weight_per_bird"`
}

// SaleSummary pairs a sale with the metrics derived from it.
type SaleSummary struct {
	SaleID      string  `json:"sale_id"`
	ClientName  string  `json:"client_name"`
	IsCompleted bool    `json:"is_completed"`
	Metrics     Metrics `json:"metrics"`
}

// ProviderSummary aggregates every sale of a provider.
type ProviderSummary struct {
	ProviderID        string        `json:"provider_id"`
	ProviderName      string        `json:"provider_name"`
	InitialFullCrates int           `json:"initial_full_crates"`
	ChickensPerCrate  int           `json:"chickens_per_crate"`
	SoldFullCrates    int           `json:"sold_full_crates"`
	RemainingCrates   int           `json:"remaining_crates"`
	Sales             []SaleSummary `json:"sales"`
	Totals            Metrics       `json:"totals"`
}
