package core

import (
	"sort"
	"sync/atomic"
)

var stamps atomic.Uint64

// Aggregate maps calendar dates to their contribution records. It is
// read-only once built; use a Builder to produce one.
type Aggregate struct {
	records map[string]ContributionRecord
	stamp   uint64
}

// Builder accumulates rows into an Aggregate. A Builder has a single owner
// and must not be shared between goroutines.
type Builder struct {
	counts   map[string]int
	projects map[string]map[string]struct{}
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		counts:   make(map[string]int),
		projects: make(map[string]map[string]struct{}),
	}
}

// Add counts one row for project. Rows with a blank Date are ignored and
// Add reports whether the row was counted.
func (b *Builder) Add(project string, row Row) bool {
	date := row.Date()
	if date == "" {
		return false
	}
	b.counts[date]++
	set, ok := b.projects[date]
	if !ok {
		set = make(map[string]struct{})
		b.projects[date] = set
	}
	set[project] = struct{}{}
	return true
}

// AddFile counts every row of f under the project derived from its name and
// returns the number of rows counted.
func (b *Builder) AddFile(f File) int {
	project := ProjectName(f.Name)
	n := 0
	for _, row := range f.Rows {
		if b.Add(project, row) {
			n++
		}
	}
	return n
}

// Build snapshots the accumulated state. The Builder may keep being used;
// later additions do not affect the returned Aggregate.
func (b *Builder) Build() Aggregate {
	records := make(map[string]ContributionRecord, len(b.counts))
	for date, count := range b.counts {
		names := make([]string, 0, len(b.projects[date]))
		for p := range b.projects[date] {
			names = append(names, p)
		}
		sort.Strings(names)
		records[date] = ContributionRecord{Date: date, Count: count, Projects: names}
	}
	return Aggregate{records: records, stamp: stamps.Add(1)}
}

// AggregateFiles folds every file into a new Aggregate. The result does not
// depend on the order of files.
func AggregateFiles(files []File) Aggregate {
	b := NewBuilder()
	for _, f := range files {
		b.AddFile(f)
	}
	return b.Build()
}

// FromRecords rebuilds an Aggregate from serialized records. Records for the
// same date are merged.
func FromRecords(records []ContributionRecord) Aggregate {
	b := NewBuilder()
	for _, r := range records {
		if r.Date == "" || r.Count <= 0 {
			continue
		}
		b.counts[r.Date] += r.Count
		set, ok := b.projects[r.Date]
		if !ok {
			set = make(map[string]struct{})
			b.projects[r.Date] = set
		}
		for _, p := range r.Projects {
			set[p] = struct{}{}
		}
	}
	return b.Build()
}

// Stamp identifies the Build call that produced a. Copies share it; two
// builds never do, even from the same input. The zero Aggregate has stamp 0.
func (a Aggregate) Stamp() uint64 {
	return a.stamp
}

// Len returns the number of distinct dates.
func (a Aggregate) Len() int {
	return len(a.records)
}

// Get returns the record for date.
func (a Aggregate) Get(date string) (ContributionRecord, bool) {
	r, ok := a.records[date]
	if !ok {
		return ContributionRecord{}, false
	}
	r.Projects = append([]string(nil), r.Projects...)
	return r, true
}

// Records returns every record sorted by date descending.
func (a Aggregate) Records() []ContributionRecord {
	out := make([]ContributionRecord, 0, len(a.records))
	for _, r := range a.records {
		r.Projects = append([]string(nil), r.Projects...)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// Total returns the sum of all counts.
func (a Aggregate) Total() int {
	total := 0
	for _, r := range a.records {
		total += r.Count
	}
	return total
}

// Years returns the distinct 4-digit year prefixes of all dates, newest first.
func (a Aggregate) Years() []int {
	seen := make(map[int]struct{})
	for date := range a.records {
		if y, ok := Year(date); ok {
			seen[y] = struct{}{}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// Undated returns the keys that carry no year prefix, sorted.
func (a Aggregate) Undated() []string {
	var out []string
	for date := range a.records {
		if _, ok := Year(date); !ok {
			out = append(out, date)
		}
	}
	sort.Strings(out)
	return out
}
