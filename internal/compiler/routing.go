package compiler

// Routing is the resolved index/type pair addressing a model's documents.
type Routing struct {
	Index string
	Type  string
}

// Routing resolves index and type for a model. Each field takes the first
// non-empty value of: the model's datasource override, its mapping declaration,
// the connector default. Type finally falls back to the model name.
func (c *Compiler) Routing(modelName string) Routing {
	var r Routing

	if def, ok := c.models.Lookup(modelName); ok {
		r.Index = def.Index
		r.Type = def.Type
	}

	if c.declarations != nil && (r.Index == "" || r.Type == "") {
		if index, typ, ok := c.declarations.Routing(modelName); ok {
			r.Index = firstNonEmpty(r.Index, index)
			r.Type = firstNonEmpty(r.Type, typ)
		}
	}

	r.Index = firstNonEmpty(r.Index, c.settings.Index)
	r.Type = firstNonEmpty(r.Type, c.settings.Type, modelName)
	return r
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
