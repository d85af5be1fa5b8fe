package prompts

func StringArraySchema() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func EnumSchema(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

func objectSchema(props map[string]any, required []string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func SceneAnalysisSchema() map[string]any {
	scene := objectSchema(map[string]any{
		"title":      map[string]any{"type": "string"},
		"start_line": map[string]any{"type": "integer"},
		"end_line":   map[string]any{"type": "integer"},
		"type":       EnumSchema("combat", "social", "exploration", "travel", "downtime", "narrative", "meta", "pause"),
		"location":   map[string]any{"type": "string"},
	}, []string{"title", "start_line", "end_line", "type", "location"})
	entity := objectSchema(map[string]any{
		"name":  map[string]any{"type": "string"},
		"kind":  EnumSchema("character", "npc", "location", "item", "faction", "creature", "other"),
		"notes": map[string]any{"type": "string"},
	}, []string{"name", "kind", "notes"})
	return objectSchema(map[string]any{
		"title":    map[string]any{"type": "string"},
		"scenes":   map[string]any{"type": "array", "items": scene},
		"entities": map[string]any{"type": "array", "items": entity},
	}, []string{"title", "scenes", "entities"})
}

func SceneSummarySchema() map[string]any {
	return objectSchema(map[string]any{
		"summary":    map[string]any{"type": "string"},
		"key_events": StringArraySchema(),
		"characters": StringArraySchema(),
	}, []string{"summary", "key_events", "characters"})
}

func SceneValidationSchema() map[string]any {
	issue := objectSchema(map[string]any{
		"severity": EnumSchema("error", "warning", "info"),
		"message":  map[string]any{"type": "string"},
	}, []string{"severity", "message"})
	return objectSchema(map[string]any{
		"issues": map[string]any{"type": "array", "items": issue},
	}, []string{"issues"})
}
