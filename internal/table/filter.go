package table

import "fmt"

// FilterGene returns the rows whose column equals gene.
func FilterGene(t *Table, column, gene string) (*Table, error) {
	if err := t.Require(column); err != nil {
		return nil, err
	}
	out := t.Filter(func(f Feature) bool { return f.Get(column) == gene })
	if out.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrGeneNotFound, gene)
	}
	return out, nil
}

// Group is the subset of a table sharing one column value.
type Group struct {
	Key   string
	Table *Table
}

// SplitBy partitions t by a column, preserving first-appearance order of keys
// and table order within each group.
func SplitBy(t *Table, column string) ([]Group, error) {
	if err := t.Require(column); err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var keys []string
	var parts [][]Feature
	for _, f := range t.rows {
		k := f.Get(column)
		i, ok := index[k]
		if !ok {
			i = len(keys)
			index[k] = i
			keys = append(keys, k)
			parts = append(parts, nil)
		}
		parts[i] = append(parts[i], f)
	}
	groups := make([]Group, len(keys))
	for i, k := range keys {
		groups[i] = Group{Key: k, Table: &Table{columns: t.columns, rows: parts[i]}}
	}
	return groups, nil
}
