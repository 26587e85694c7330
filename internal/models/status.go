package models

// StatusConfig is the subset of configuration reported by status.
type StatusConfig struct {
	EmbeddingProvider   string   `json:"embedding_provider"`
	EmbeddingDimensions int      `json:"embedding_dimensions"`
	LLMModel            string   `json:"llm_model"`
	DatabasePath        string   `json:"database_path,omitempty"`
	BleveIndexPath      string   `json:"bleve_index_path,omitempty"`
	Parties             []string `json:"parties"`
}

// Status describes the contents of the index.
type Status struct {
	Records         int64         `json:"records"`
	Programs        int64         `json:"programs"`
	Debates         int64         `json:"debates"`
	VectorIndexSize int           `json:"vector_index_size"`
	DiskUsageBytes  *int64        `json:"disk_usage_bytes,omitempty"`
	Config          *StatusConfig `json:"config,omitempty"`
}
