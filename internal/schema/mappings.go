package schema

// Mappings renders the Elasticsearch index mapping for documents produced
// with this table. Exact names become explicit properties; the pattern rules,
// expression fallbacks and unknown strings are covered by dynamic templates.
func (t *Table) Mappings() map[string]any {
	props := make(map[string]any)
	add := func(names []string, mapping map[string]any) {
		for _, name := range names {
			props[name] = mapping
		}
	}
	add(t.sets.Text, map[string]any{"type": "text"})
	add(t.sets.Keyword, map[string]any{"type": "keyword"})
	add(t.sets.NoIndexKeyword, map[string]any{"type": "keyword", "index": "false"})
	add(t.sets.Float, map[string]any{"type": "double"})
	add(t.sets.Int, map[string]any{"type": "long"})
	add(t.sets.Date, map[string]any{"type": "date", "format": "epoch_second"})
	add(t.sets.Bool, map[string]any{"type": "boolean"})

	props["metadata"] = map[string]any{
		"properties": map[string]any{
			"harvest_runtime": map[string]any{"type": "date", "format": "epoch_second"},
			"source_runtime":  map[string]any{"type": "date", "format": "epoch_second"},
		},
	}

	templates := []map[string]any{
		{"raw_expressions": map[string]any{
			"match":   "*_EXPR",
			"mapping": map[string]any{"type": "keyword", "index": "false", "ignore_above": 256},
		}},
		{"string_fallbacks": map[string]any{
			"match":   "*_STRING",
			"mapping": map[string]any{"type": "keyword", "ignore_above": 256},
		}},
	}
	for _, rule := range t.rules {
		templates = append(templates, map[string]any{rule.Name: map[string]any{
			"match_pattern": "regex",
			"match":         rule.Pattern.String(),
			"mapping":       kindMapping(rule.Kind),
		}})
	}
	templates = append(templates, map[string]any{"strings_as_keywords": map[string]any{
		"match_mapping_type": "string",
		"mapping":            map[string]any{"type": "keyword", "norms": "false", "ignore_above": 256},
	}})

	return map[string]any{
		"dynamic_templates": templates,
		"properties":        props,
		"date_detection":    false,
		"numeric_detection": false,
	}
}

// Settings returns the index settings created alongside the mapping.
func Settings() map[string]any {
	return map[string]any{
		"analysis": map[string]any{
			"analyzer": map[string]any{
				"analyzer_keyword": map[string]any{"tokenizer": "keyword", "filter": "lowercase"},
			},
		},
		"mapping.total_fields.limit": 2000,
	}
}

func kindMapping(kind Kind) map[string]any {
	switch kind {
	case Text:
		return map[string]any{"type": "text"}
	case Float:
		return map[string]any{"type": "double"}
	case Int:
		return map[string]any{"type": "long"}
	case Bool:
		return map[string]any{"type": "boolean"}
	case Date:
		return map[string]any{"type": "date", "format": "epoch_second"}
	default:
		return map[string]any{"type": "keyword", "ignore_above": 256}
	}
}
