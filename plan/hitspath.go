package plan

import (
	"github.com/reveald/cube/esdoc"
	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
)

// compileHits handles a Query with no edges/groupby/aggregate selects:
// a plain hits search, paginated by Limit, sorted by Sort, with _source
// filtered down to the requested select fields when every select is a
// bare Variable.
func compileHits(query *model.Query) (*Compiled, error) {
	body := esdoc.Node{}

	if query.Where != nil {
		body["query"] = expr.ToESFilter(query.Where)
	} else {
		body["query"] = esdoc.Node{"match_all": esdoc.Node{}}
	}

	size := query.Limit
	if size <= 0 {
		size = 10
	}
	body["size"] = size

	if fields, ok := bareSelectFields(query.Select); ok && len(fields) > 0 {
		body["_source"] = fields
	}

	if len(query.Sort) > 0 {
		sortClauses := make([]any, 0, len(query.Sort))
		for _, s := range query.Sort {
			v, ok := expr.IsVariable(s.Value)
			if !ok {
				continue
			}
			order := "asc"
			if s.Dir == model.Desc {
				order = "desc"
			}
			sortClauses = append(sortClauses, esdoc.Node{v.Name: esdoc.Node{"order": order}})
		}
		if len(sortClauses) > 0 {
			body["sort"] = sortClauses
		}
	}

	return &Compiled{
		Body:        body,
		Query:       query,
		IsAggregate: false,
	}, nil
}

func bareSelectFields(selects []model.SelectClause) ([]string, bool) {
	if len(selects) == 0 {
		return nil, false
	}
	fields := make([]string, 0, len(selects))
	for _, s := range selects {
		v, ok := expr.IsVariable(s.Value)
		if !ok {
			return nil, false
		}
		fields = append(fields, v.Name)
	}
	return fields, true
}
