package query

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/stackpal/tessera/internal/schema"
	"github.com/stackpal/tessera/model"
)

func propertySchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]model.FieldDescriptor{
		{Key: "id", Label: "ID", Type: model.TypeText},
		{Key: "name", Label: "Name", Type: model.TypeText, Searchable: true, Sortable: true},
		{Key: "rank", Label: "Rank", Type: model.TypeNumber, Sortable: true},
	})
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return s
}

// genRecords produces small record sets with overlapping names and ranks so
// ties and search hits actually occur.
func genRecords() gopter.Gen {
	return gen.SliceOf(gen.Struct(reflect.TypeOf(struct {
		Name string
		Rank int
	}{}), map[string]gopter.Gen{
		"Name": gen.OneConstOf("alpha", "beta", "gamma", "delta", "alphabet", ""),
		"Rank": gen.IntRange(0, 3),
	})).Map(func(rows []struct {
		Name string
		Rank int
	}) []model.Record {
		records := make([]model.Record, len(rows))
		for i, row := range rows {
			records[i] = model.Record{
				"id":   model.Text("rec-" + strconv.Itoa(i)),
				"name": model.Text(row.Name),
				"rank": model.Number(float64(row.Rank)),
			}
		}
		return records
	})
}

func TestEvaluate_properties(t *testing.T) {
	sc := propertySchema(t)
	e := NewEngine()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("evaluation is idempotent", prop.ForAll(
		func(records []model.Record, search string, page, pageSize int) bool {
			state := model.QueryState{
				SearchText: search,
				SortKey:    "rank",
				Page:       page,
				PageSize:   pageSize,
			}
			first := e.Evaluate(sc, records, state)
			second := e.Evaluate(sc, records, state)
			return reflect.DeepEqual(first, second)
		},
		genRecords(),
		gen.OneConstOf("", "alp", "bet", "zzz"),
		gen.IntRange(0, 5),
		gen.IntRange(0, 5),
	))

	properties.Property("search only narrows", prop.ForAll(
		func(records []model.Record, search string) bool {
			wide := e.Evaluate(sc, records, model.QueryState{Page: 1, PageSize: len(records) + 1})
			narrow := e.Evaluate(sc, records, model.QueryState{SearchText: search, Page: 1, PageSize: len(records) + 1})
			return narrow.TotalCount <= wide.TotalCount
		},
		genRecords(),
		gen.OneConstOf("alp", "bet", "gam", "a", "zzz"),
	))

	properties.Property("pages partition the narrowed set", prop.ForAll(
		func(records []model.Record, pageSize int) bool {
			state := model.QueryState{SortKey: "rank", SortDirection: model.SortAsc, PageSize: pageSize}

			state.Page = 1
			whole := e.Evaluate(sc, records, model.QueryState{
				SortKey: "rank", SortDirection: model.SortAsc, Page: 1, PageSize: len(records) + 1,
			})

			var gathered []model.Record
			first := e.Evaluate(sc, records, state)
			gathered = append(gathered, first.Items...)
			for page := 2; page <= first.TotalPages; page++ {
				state.Page = page
				gathered = append(gathered, e.Evaluate(sc, records, state).Items...)
			}

			if len(gathered) != whole.TotalCount {
				return false
			}
			for i := range gathered {
				if gathered[i].ID() != whole.Items[i].ID() {
					return false
				}
			}
			return true
		},
		genRecords(),
		gen.IntRange(1, 4),
	))

	properties.Property("equal sort keys keep input order", prop.ForAll(
		func(records []model.Record, desc bool) bool {
			dir := model.SortAsc
			if desc {
				dir = model.SortDesc
			}
			result := e.Evaluate(sc, records, model.QueryState{
				SortKey: "rank", SortDirection: dir, Page: 1, PageSize: len(records) + 1,
			})

			position := make(map[string]int, len(records))
			for i, rec := range records {
				position[rec.ID()] = i
			}
			for i := 1; i < len(result.Items); i++ {
				prev, cur := result.Items[i-1], result.Items[i]
				pr, _ := prev["rank"].AsNumber()
				cr, _ := cur["rank"].AsNumber()
				if pr == cr && position[prev.ID()] > position[cur.ID()] {
					return false
				}
			}
			return true
		},
		genRecords(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
