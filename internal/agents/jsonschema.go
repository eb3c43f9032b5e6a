package agents

import "github.com/google/jsonschema-go/jsonschema"

// JSONSchema describes the normalized output document of kind k.
func JSONSchema(k Kind) *jsonschema.Schema {
	s := objectSchema(schemaFields(k))
	s.Title = k.ID()
	s.Description = k.Name()
	return s
}

func objectSchema(fields []field) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(fields)),
		Required:   make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		s.Properties[f.name] = fieldSchema(f)
		s.Required = append(s.Required, f.name)
	}
	return s
}

func fieldSchema(f field) *jsonschema.Schema {
	switch f.typ {
	case numberType:
		return scalarSchema("number", f.defaultsToNull())
	case stringType:
		s := scalarSchema("string", f.defaultsToNull())
		switch {
		case f.constant != "":
			s.Enum = []any{f.constant}
		case len(f.enum) > 0:
			s.Enum = make([]any, 0, len(f.enum)+1)
			for _, e := range f.enum {
				s.Enum = append(s.Enum, e)
			}
			if f.defaultsToNull() {
				s.Enum = append(s.Enum, nil)
			}
		case f.hint != "":
			s.Description = f.hint
		}
		return s
	case arrayType:
		return &jsonschema.Schema{Type: "array", Items: fieldSchema(*f.elem)}
	case objectType:
		return objectSchema(f.fields)
	}
	return &jsonschema.Schema{Type: "null"}
}

func scalarSchema(typ string, nullable bool) *jsonschema.Schema {
	if nullable {
		return &jsonschema.Schema{Types: []string{typ, "null"}}
	}
	return &jsonschema.Schema{Type: typ}
}
