package agents

import (
	"strings"

	"stock-agents/internal/jsondoc"
)

// The field tables below are the single source of truth for agent output
// shape. The prompt skeleton, the normalizer and the JSON Schema export all
// render from them.

type valueType uint8

const (
	anyType valueType = iota
	numberType
	stringType
	arrayType
	objectType
)

type field struct {
	name string
	typ  valueType
	// hint replaces "string" in the skeleton, e.g. a date layout.
	hint string
	enum []string
	// constant is a fixed string value that replaces blank input.
	constant string
	// emptyString defaults a missing string to "" instead of null.
	emptyString bool
	elem        *field
	fields      []field
	// itemsNormalized fills every object element of the array.
	itemsNormalized bool
}

func num(name string) field  { return field{name: name, typ: numberType} }
func str(name string) field  { return field{name: name, typ: stringType} }
func null(name string) field { return field{name: name, typ: anyType} }

func hinted(name, hint string) field {
	return field{name: name, typ: stringType, hint: hint}
}

func choice(name string, options ...string) field {
	return field{name: name, typ: stringType, enum: options}
}

func list(name string, elem field) field {
	return field{name: name, typ: arrayType, elem: &elem}
}

func object(name string, fields ...field) field {
	return field{name: name, typ: objectType, fields: fields}
}

func stringList(name string) field { return list(name, field{typ: stringType}) }

// Recommendation actions, from watching to fully exiting.
var actionChoices = []string{"观察", "试仓", "加仓", "减仓", "清仓"}

var evidenceField = field{
	name: "evidence",
	typ:  arrayType,
	elem: &field{typ: objectType, fields: []field{
		str("point"),
		str("source"),
		hinted("publishedAt", "YYYY-MM-DD HH:mm"),
		str("url"),
	}},
	itemsNormalized: true,
}

func commonHead(k Kind) []field {
	return []field{
		{name: "agent", typ: stringType, constant: k.ID()},
		{name: "summary", typ: stringType, emptyString: true},
	}
}

func commonTail() []field {
	return []field{
		stringList("signals"),
		stringList("risks"),
		stringList("triggers"),
		stringList("invalidations"),
		stringList("riskLimits"),
		evidenceField,
	}
}

var kindFields = map[Kind][]field{
	Commander: {
		object("metrics",
			num("price"),
			num("changePercent"),
			num("turnoverRate"),
			num("innerVolume"),
			num("outerVolume"),
			str("sector"),
			hinted("date", "YYYY-MM-DD"),
		),
		object("recommendation",
			choice("action", actionChoices...),
			num("targetPrice"),
			num("takeProfitPrice"),
			num("stopLossPrice"),
			str("timeHorizon"),
			num("positionPercent"),
			num("entryScore"),
			num("valuationScore"),
			num("confidence"),
			str("rating"),
		),
		stringList("reasons"),
	},
	StockNews: {
		num("confidence"),
		object("sentiment",
			num("positive"),
			num("neutral"),
			num("negative"),
			str("overall"),
		),
		list("events", field{typ: objectType, fields: []field{
			str("title"),
			choice("category", "利好", "中性", "利空"),
			hinted("publishedAt", "YYYY-MM-DD HH:mm"),
			str("source"),
			num("impact"),
			str("url"),
		}}),
	},
	SectorNews: {
		str("sector"),
		num("confidence"),
		num("sectorChangePercent"),
		list("topMovers", field{typ: objectType, fields: []field{
			str("symbol"),
			str("name"),
			num("changePercent"),
			str("reason"),
		}}),
	},
	FinancialAnalysis: {
		num("confidence"),
		object("metrics",
			num("revenue"),
			num("revenueYoY"),
			num("netProfit"),
			num("netProfitYoY"),
			num("nonRecurringProfit"),
			num("institutionHoldingPercent"),
			num("institutionTargetPrice"),
		),
		stringList("highlights"),
	},
	TrendAnalysis: {
		num("confidence"),
		list("timeframeSignals", field{typ: objectType, fields: []field{
			choice("timeframe", "1D", "1W", "1M"),
			choice("trend", "上涨", "震荡", "下跌"),
			num("confidence"),
		}}),
		list("forecast", field{typ: objectType, fields: []field{
			hinted("label", "T+1"),
			num("price"),
			num("confidence"),
		}}),
	},
}

// chartField is an object for trend analysis and a plain null elsewhere.
func chartField(k Kind) field {
	if k == TrendAnalysis {
		return object("chart",
			hinted("type", "line"),
			hinted("title", "未来价格走势"),
			stringList("labels"),
			list("values", field{typ: numberType}),
		)
	}
	return null("chart")
}

// schemaFields returns the ordered top-level fields of kind k.
func schemaFields(k Kind) []field {
	fields := commonHead(k)
	fields = append(fields, kindFields[k]...)
	fields = append(fields, commonTail()...)
	return append(fields, chartField(k))
}

// FieldNames lists the top-level output fields of k in schema order.
func FieldNames(k Kind) []string {
	fields := schemaFields(k)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}

// NestedFieldNames lists the members of the object-typed field name of k.
func NestedFieldNames(k Kind, name string) []string {
	for _, f := range schemaFields(k) {
		if f.name == name && f.typ == objectType {
			names := make([]string, len(f.fields))
			for i, sub := range f.fields {
				names[i] = sub.name
			}
			return names
		}
	}
	return nil
}

func (f field) defaultValue() jsondoc.Value {
	switch {
	case f.constant != "":
		return jsondoc.StringValue(f.constant)
	case f.emptyString:
		return jsondoc.StringValue("")
	case f.typ == arrayType:
		return jsondoc.ArrayOf()
	case f.typ == objectType:
		return fill(jsondoc.ObjectOf(), f.fields, 0)
	}
	return jsondoc.NullValue()
}

// defaultsToNull reports whether a missing f is filled with null. Such
// fields accept null in the skeleton and in the JSON Schema.
func (f field) defaultsToNull() bool {
	return f.name != "" && f.defaultValue().IsNull()
}

// Skeleton renders the output structure of k as shown to the model.
func Skeleton(k Kind) string {
	var b strings.Builder
	writeObject(&b, schemaFields(k), 0)
	return b.String()
}

func writeObject(b *strings.Builder, fields []field, depth int) {
	indent := strings.Repeat("  ", depth)
	b.WriteString("{\n")
	for i, f := range fields {
		b.WriteString(indent + "  \"" + f.name + "\": ")
		writeValue(b, f, depth+1)
		if i < len(fields)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(indent + "}")
}

func writeValue(b *strings.Builder, f field, depth int) {
	switch f.typ {
	case anyType:
		b.WriteString("null")
	case numberType:
		b.WriteString("number")
		if f.defaultsToNull() {
			b.WriteString("|null")
		}
	case stringType:
		b.WriteString(stringPlaceholder(f))
	case arrayType:
		if f.elem.typ != objectType {
			b.WriteByte('[')
			writeValue(b, *f.elem, depth)
			b.WriteByte(']')
			return
		}
		indent := strings.Repeat("  ", depth)
		b.WriteString("[\n" + indent + "  ")
		writeObject(b, f.elem.fields, depth+1)
		b.WriteString("\n" + indent + "]")
	case objectType:
		writeObject(b, f.fields, depth)
	}
}

func stringPlaceholder(f field) string {
	switch {
	case f.constant != "":
		return `"` + f.constant + `"`
	}
	text := "string"
	switch {
	case len(f.enum) > 0:
		text = strings.Join(f.enum, "|")
	case f.hint != "":
		text = f.hint
	}
	if f.defaultsToNull() {
		text += "|null"
	}
	return `"` + text + `"`
}
