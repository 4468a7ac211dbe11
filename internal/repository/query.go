package repository

// Query is a server-side filter applied when listing documents. Queries
// are built with Equal, OrderDesc, OrderAsc, Limit, CursorAfter and
// Search and combined in a single List call.
type Query struct {
	kind  queryKind
	field string
	value any
	n     int
}

type queryKind int

const (
	queryEqual queryKind = iota
	queryOrderDesc
	queryOrderAsc
	queryLimit
	queryCursorAfter
	querySearch
)

// Equal matches documents whose field equals value. For array fields the
// document matches when any element equals value.
func Equal(field string, value any) Query {
	return Query{kind: queryEqual, field: field, value: value}
}

// OrderDesc sorts by field, newest or largest first.
func OrderDesc(field string) Query {
	return Query{kind: queryOrderDesc, field: field}
}

// OrderAsc sorts by field, oldest or smallest first.
func OrderAsc(field string) Query {
	return Query{kind: queryOrderAsc, field: field}
}

// Limit caps the number of returned documents.
func Limit(n int) Query {
	return Query{kind: queryLimit, n: n}
}

// CursorAfter returns only documents that sort after the document with
// the given id.
func CursorAfter(id string) Query {
	return Query{kind: queryCursorAfter, value: id}
}

// Search runs a full-text match of term against field.
func Search(field, term string) Query {
	return Query{kind: querySearch, field: field, value: term}
}

type fieldValue struct {
	field string
	value any
}

// querySpec is the compiled form of a []Query shared by every backend.
type querySpec struct {
	equals      []fieldValue
	orderField  string
	desc        bool
	limit       int
	cursor      string
	searchField string
	searchTerm  string
}

const defaultOrderField = "createdAt"

func compile(queries []Query) querySpec {
	spec := querySpec{orderField: defaultOrderField}
	for _, q := range queries {
		switch q.kind {
		case queryEqual:
			spec.equals = append(spec.equals, fieldValue{field: q.field, value: q.value})
		case queryOrderDesc:
			spec.orderField, spec.desc = q.field, true
		case queryOrderAsc:
			spec.orderField, spec.desc = q.field, false
		case queryLimit:
			spec.limit = q.n
		case queryCursorAfter:
			spec.cursor, _ = q.value.(string)
		case querySearch:
			spec.searchField = q.field
			spec.searchTerm, _ = q.value.(string)
		}
	}
	return spec
}
