package agents

import (
	"strings"

	"stock-agents/internal/jsondoc"
)

// Normalize returns doc with every field of kind k present. Missing or null
// fields get their default (null, "", [] or a filled object); present values
// are kept as they are, even when of an unexpected type. Nested objects and
// evidence items are filled one level down. A non-object doc is returned
// unchanged.
func Normalize(k Kind, doc jsondoc.Value) jsondoc.Value {
	if !doc.IsObject() {
		return doc
	}
	return fill(doc, schemaFields(k), 1)
}

// fill adds the fields missing from obj. depth is how many levels of present
// nested objects may still be descended into.
func fill(obj jsondoc.Value, fields []field, depth int) jsondoc.Value {
	for _, f := range fields {
		cur, ok := obj.Get(f.name)
		if !ok || cur.IsNull() {
			obj = obj.Set(f.name, f.defaultValue())
			continue
		}
		switch {
		case f.constant != "":
			if s, isString := cur.AsString(); isString && strings.TrimSpace(s) == "" {
				obj = obj.Set(f.name, jsondoc.StringValue(f.constant))
			}
		case depth > 0 && f.typ == objectType && cur.IsObject():
			obj = obj.Set(f.name, fill(cur, f.fields, depth-1))
		case depth > 0 && f.itemsNormalized && cur.Kind() == jsondoc.Array:
			obj = obj.Set(f.name, fillItems(cur, f.elem.fields, depth-1))
		}
	}
	return obj
}

func fillItems(arr jsondoc.Value, fields []field, depth int) jsondoc.Value {
	items := arr.Items()
	for i, it := range items {
		if it.IsObject() {
			items[i] = fill(it, fields, depth)
		}
	}
	return jsondoc.ArrayOf(items...)
}
