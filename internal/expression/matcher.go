package expression

import (
	"cmp"
	"slices"

	"go.uber.org/zap"
	"gopkg.in/fatih/set.v0"

	"github.com/inodb/vibe-isoforms/internal/table"
)

// Matcher restricts expression matrices to annotated transcripts.
type Matcher struct {
	column string
	logger *zap.Logger
}

// NewMatcher creates a matcher joining on the given annotation column.
func NewMatcher(column string) *Matcher {
	return &Matcher{column: column, logger: zap.NewNop()}
}

// SetLogger sets the logger for warnings about unmatched transcripts.
func (m *Matcher) SetLogger(l *zap.Logger) {
	m.logger = l
}

// Match returns the matrix rows whose identifier appears in the annotation,
// in matrix order. Annotated transcripts missing from the matrix are logged.
func (m *Matcher) Match(annotation *table.Table, mat *Matrix) (*Matrix, error) {
	if err := annotation.Require(m.column); err != nil {
		return nil, err
	}

	annotated := set.New(set.ThreadSafe)
	for _, id := range annotation.Unique(m.column) {
		annotated.Add(id)
	}
	measured := set.New(set.ThreadSafe)
	for _, id := range mat.ids {
		measured.Add(id)
	}

	var rows []int
	for i, id := range mat.ids {
		if annotated.Has(id) {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, ErrNoMatchingTranscripts
	}

	if missing := set.Difference(annotated, measured); missing.Size() > 0 {
		ids := set.StringSlice(missing)
		slices.Sort(ids)
		m.logger.Warn("annotated transcripts missing from expression matrix",
			zap.Int("count", len(ids)),
			zap.Strings(m.column, ids))
	}
	m.logger.Debug("matched expression matrix",
		zap.Int("matched", len(rows)),
		zap.Int("rows", mat.Len()))

	return mat.subset(rows), nil
}

// TopN returns the n transcripts with the highest mean expression, most
// expressed first. Ties keep matrix order.
func (m *Matcher) TopN(mat *Matrix, n int) *Matrix {
	if n > mat.Len() {
		m.logger.Warn("fewer transcripts than requested",
			zap.Int("requested", n),
			zap.Int("available", mat.Len()))
		n = mat.Len()
	}
	if n < 0 {
		n = 0
	}

	rows := make([]int, mat.Len())
	for i := range rows {
		rows[i] = i
	}
	slices.SortStableFunc(rows, func(a, b int) int {
		return cmp.Compare(mat.Mean(b), mat.Mean(a))
	})
	return mat.subset(rows[:n])
}

// Filter returns the annotation rows whose transcript appears in mat.
func (m *Matcher) Filter(annotation *table.Table, mat *Matrix) *table.Table {
	keep := set.New(set.NonThreadSafe)
	for _, id := range mat.ids {
		keep.Add(id)
	}
	return annotation.Filter(func(f table.Feature) bool {
		return keep.Has(f.Get(m.column))
	})
}
