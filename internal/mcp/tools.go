package mcp

// ToolDefinitions returns the tools exposed to MCP clients.
func ToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name: "memory_store",
			Description: "Store a passage of the story as a memory. Identical text is deduplicated. " +
				"Wrap anything that must not be remembered in <private></private>.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"text":    {Type: "string", Description: "The passage to remember"},
					"summary": {Type: "string", Description: "Optional short summary; generated when omitted"},
					"importance": {Type: "number", Description: "Initial importance in [0,1]",
						Default: 0.5},
				},
				Required: []string{"text"},
			},
		},
		{
			Name: "memory_search",
			Description: "Find the memories most relevant to a question. Returns ranked records, " +
				"a confidence and an assembled context passage.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query": {Type: "string", Description: "Natural language question or cue"},
					"topK":  {Type: "number", Description: "Maximum results (server default when omitted)"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "memory_get",
			Description: "Retrieve one memory by ID.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id": {Type: "string", Description: "Memory ID"},
				},
				Required: []string{"id"},
			},
		},
		{
			Name: "memory_decay",
			Description: "Run one decay cycle: fade old, rarely used memories, condense fading ones " +
				"and forget the faintest.",
			InputSchema: InputSchema{Type: "object"},
		},
	}
}
