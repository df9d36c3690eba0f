package listquery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type task struct {
	ID      string
	Agent   string
	Status  string
	Notes   string
	DueDate time.Time
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleTasks() []task {
	return []task{
		{ID: "1", Agent: "alice", Status: "Pending", Notes: "call about pricing", DueDate: date("2024-06-01")},
		{ID: "2", Agent: "bob", Status: "Completed", Notes: "send contract", DueDate: date("2024-06-03")},
		{ID: "3", Agent: "alice", Status: "Pending", Notes: "demo follow-up", DueDate: date("2024-06-05")},
	}
}

func taskSearchFields(t task) []string { return []string{t.Agent, t.Notes} }
func taskDue(t task) time.Time         { return t.DueDate }

func TestApply_PaginationTotals(t *testing.T) {
	items := make([]task, 23)
	for i := range items {
		items[i] = task{ID: string(rune('a' + i))}
	}

	p := Apply(items, nil, nil, 1, 5)
	assert.Equal(t, 23, p.TotalCount)
	assert.Equal(t, 5, p.TotalPages)
	assert.Len(t, p.Items, 5)

	// Sum of page sizes over every page equals the filtered count
	seen := 0
	for page := 1; page <= p.TotalPages; page++ {
		seen += len(Apply(items, nil, nil, page, 5).Items)
	}
	assert.Equal(t, 23, seen)
}

func TestApply_PageBeyondEndIsEmptyNotClamped(t *testing.T) {
	p := Apply(sampleTasks(), nil, nil, 9, 2)
	assert.Empty(t, p.Items)
	assert.Equal(t, 3, p.TotalCount)
	assert.Equal(t, 2, p.TotalPages)
}

func TestApply_EmptyInput(t *testing.T) {
	p := Apply([]task{}, nil, nil, 1, 10)
	assert.Empty(t, p.Items)
	assert.Zero(t, p.TotalCount)
	assert.Zero(t, p.TotalPages)
}

func TestSearch_CaseInsensitiveAcrossFields(t *testing.T) {
	f := Search("CONTRACT", taskSearchFields)
	require.NotNil(t, f)

	p := Apply(sampleTasks(), []Filter[task]{f}, nil, 1, 10)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "2", p.Items[0].ID)

	// Empty term deactivates the dimension entirely
	assert.Nil(t, Search[task]("  ", taskSearchFields))
}

func TestFilters_AreANDed(t *testing.T) {
	filters := []Filter[task]{
		Equals("alice", func(t task) string { return t.Agent }),
		Equals("Pending", func(t task) string { return t.Status }),
		Search("demo", taskSearchFields),
	}

	p := Apply(sampleTasks(), filters, nil, 1, 10)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "3", p.Items[0].ID)
}

func TestDateRange_InclusiveWindow(t *testing.T) {
	// Three tasks due 06-01, 06-03, 06-05 with window [06-02, 06-03]
	// must return exactly the 06-03 record.
	from := date("2024-06-02")
	to := date("2024-06-03")

	f := DateRange(&from, &to, taskDue)
	p := Apply(sampleTasks(), []Filter[task]{f}, nil, 1, 10)

	require.Len(t, p.Items, 1)
	assert.Equal(t, "2", p.Items[0].ID)
}

func TestDateRange_EndOfDayInclusiveBound(t *testing.T) {
	// A record stamped late on the `to` calendar day must still be
	// included; a naive midnight comparison would drop it.
	items := []task{
		{ID: "late", DueDate: time.Date(2024, 6, 3, 17, 45, 0, 0, time.UTC)},
		{ID: "next", DueDate: time.Date(2024, 6, 4, 0, 0, 1, 0, time.UTC)},
	}

	to := date("2024-06-03")
	f := DateRange(nil, &to, taskDue)

	p := Apply(items, []Filter[task]{f}, nil, 1, 10)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "late", p.Items[0].ID)
}

func TestNextDay_CalendarDayInBoundLocation(t *testing.T) {
	auckland := time.FixedZone("UTC+13", 13*60*60)

	to := time.Date(2024, 6, 3, 0, 0, 0, 0, auckland)
	bound := NextDay(to)

	// The bound is midnight of the following calendar day in the same
	// zone. An absolute-time truncation would land mid-day and drop
	// late-afternoon records from the `to` day.
	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, auckland), bound)
	assert.Equal(t, auckland, bound.Location())

	lateOnToDay := time.Date(2024, 6, 3, 23, 30, 0, 0, auckland)
	assert.True(t, lateOnToDay.Before(bound))
}

func TestNextDay_RollsOverMonthEnd(t *testing.T) {
	bound := NextDay(date("2024-06-30"))
	assert.Equal(t, date("2024-07-01"), bound)
}

func TestDateRange_FromBoundIncludesBoundary(t *testing.T) {
	from := date("2024-06-01")
	f := DateRange(&from, nil, taskDue)

	p := Apply(sampleTasks(), []Filter[task]{f}, nil, 1, 10)
	assert.Len(t, p.Items, 3)
}

func TestSorter_ResolvesKnownKeysRejectsUnknown(t *testing.T) {
	sorter := Sorter[task]{
		"due_date": func(a, b task) bool { return a.DueDate.Before(b.DueDate) },
		"agent":    func(a, b task) bool { return a.Agent < b.Agent },
	}

	less, err := sorter.Resolve("agent")
	require.NoError(t, err)
	require.NotNil(t, less)

	p := Apply(sampleTasks(), nil, less, 1, 10)
	assert.Equal(t, "alice", p.Items[0].Agent)
	assert.Equal(t, "bob", p.Items[2].Agent)

	_, err = sorter.Resolve("deal_value")
	assert.Error(t, err)

	// Empty key means no sorting
	less, err = sorter.Resolve("")
	require.NoError(t, err)
	assert.Nil(t, less)
}

func TestApply_StableSortPreservesTieOrder(t *testing.T) {
	items := []task{
		{ID: "first", Agent: "same"},
		{ID: "second", Agent: "same"},
		{ID: "third", Agent: "same"},
	}
	less := func(a, b task) bool { return a.Agent < b.Agent }

	p := Apply(items, nil, less, 1, 10)
	assert.Equal(t, []string{"first", "second", "third"}, []string{p.Items[0].ID, p.Items[1].ID, p.Items[2].ID})
}
