package models

// IngestRequest is the payload for POST /memories.
type IngestRequest struct {
	Text            string   `json:"text"`
	Summary         string   `json:"summary,omitempty"`
	ImportanceScore *float64 `json:"importanceScore,omitempty"`
}

// IngestResponse is returned from POST /memories.
type IngestResponse struct {
	ID                string  `json:"id"`
	Deduplicated      bool    `json:"deduplicated"`
	NearDuplicateID   string  `json:"nearDuplicateId,omitempty"`
	NearDupSimilarity float64 `json:"nearDupSimilarity,omitempty"`
}

// RetrieveRequest is the payload for POST /memories/search. A zero TopK
// falls back to the configured default.
type RetrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

// RetrievalResult is a single ranked record. The debug scores expose the
// two components that were blended into Score.
type RetrievalResult struct {
	Record        *Record `json:"record"`
	Score         float64 `json:"score"`
	DebugSemantic float64 `json:"debugSemantic"`
	DebugLexical  float64 `json:"debugLexical"`
}

// RetrieveResponse is returned from POST /memories/search.
type RetrieveResponse struct {
	Results      []RetrievalResult `json:"results"`
	Confidence   float64           `json:"confidence"`
	Context      string            `json:"context"`
	Method       string            `json:"method"`
	Insufficient bool              `json:"insufficient"`
	Message      string            `json:"message,omitempty"`
	SearchTimeMs int               `json:"searchTimeMs"`
}

// DecayStats tallies one decay cycle.
type DecayStats struct {
	Total        int `json:"total"`
	Updated      int `json:"updated"`
	Consolidated int `json:"consolidated"`
	Forgotten    int `json:"forgotten"`
	Errors       int `json:"errors"`
}

// DecayReport wraps DecayStats for callers. NoOp is set when the store was
// empty and nothing ran.
type DecayReport struct {
	Stats      DecayStats `json:"stats"`
	NoOp       bool       `json:"noOp"`
	DurationMs int64      `json:"durationMs"`
}

// IndexStatus describes the live vector index.
type IndexStatus struct {
	Engine    string `json:"engine"`
	Size      int    `json:"size"`
	Dimension int    `json:"dimension"`
	Skipped   int    `json:"skipped"`
	Built     bool   `json:"built"`
}

// RepairReport is returned by the repair operation.
type RepairReport struct {
	Scanned   int         `json:"scanned"`
	Embedded  int         `json:"embedded"`
	Failed    int         `json:"failed"`
	Index     IndexStatus `json:"index"`
	SavedPath string      `json:"savedPath,omitempty"`
}

// Stats is returned from GET /index and the memctl stats command.
type Stats struct {
	Records        int         `json:"records"`
	WithEmbeddings int         `json:"withEmbeddings"`
	Consolidated   int         `json:"consolidated"`
	Index          IndexStatus `json:"index"`
}

// MemoryListResponse is returned from GET /memories.
type MemoryListResponse struct {
	Memories []*Record `json:"memories"`
	Total    int       `json:"total"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status       string       `json:"status"`
	Embedding    ServiceCheck `json:"embedding"`
	Store        ServiceCheck `json:"store"`
	MemoryCount  int          `json:"memoryCount"`
	IndexSize    int          `json:"indexSize"`
	IndexEngine  string       `json:"indexEngine"`
	Backend      string       `json:"backend"`
	Degraded     bool         `json:"degraded"`
	UptimeSecond int64        `json:"uptimeSeconds"`
}

// ServiceCheck is the health status of one dependency.
type ServiceCheck struct {
	Status string `json:"status"`
	Model  string `json:"model,omitempty"`
	Error  string `json:"error,omitempty"`
}
