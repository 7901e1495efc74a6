package connector

import (
	"fmt"
	"slices"

	"github.com/golang/glog"

	"github.com/five82/gridsync/internal/protocol"
)

// SortOrder is one entry of the sort order.
type SortOrder struct {
	ColumnID  string
	Direction protocol.SortDirection
}

// buildSortOrder pairs ids and dirs positionally. The arrays come from the
// server and are expected to have equal length; extra entries are dropped.
func buildSortOrder(ids []string, dirs []protocol.SortDirection) []SortOrder {
	if len(ids) != len(dirs) {
		glog.Warningf("sort state mismatch: %d columns, %d directions", len(ids), len(dirs))
	}
	n := min(len(ids), len(dirs))
	order := make([]SortOrder, 0, n)
	for i := range n {
		order = append(order, SortOrder{ColumnID: ids[i], Direction: dirs[i]})
	}
	return order
}

func splitSortOrder(order []SortOrder) ([]string, []protocol.SortDirection) {
	ids := make([]string, len(order))
	dirs := make([]protocol.SortDirection, len(order))
	for i, o := range order {
		ids[i] = o.ColumnID
		dirs[i] = o.Direction
	}
	return ids, dirs
}

// nextSortOrder returns order after a user sorts by id. A column already in
// the order flips direction; a new column is sorted ascending and either
// replaces the order or, when additive, is appended to it.
func nextSortOrder(order []SortOrder, id string, additive bool) []SortOrder {
	i := slices.IndexFunc(order, func(o SortOrder) bool { return o.ColumnID == id })
	if i >= 0 {
		flipped := SortOrder{ColumnID: id, Direction: order[i].Direction.Opposite()}
		if !additive {
			return []SortOrder{flipped}
		}
		next := slices.Clone(order)
		next[i] = flipped
		return next
	}
	entry := SortOrder{ColumnID: id, Direction: protocol.Ascending}
	if !additive {
		return []SortOrder{entry}
	}
	return append(slices.Clone(order), entry)
}

// SortOrder returns the current sort order.
func (c *Connector) SortOrder() []SortOrder {
	return slices.Clone(c.sortOrder)
}

// SortBy sorts by the column with the given id. The sort RPC is sent only
// when the resulting order differs from the order last received from the
// server.
func (c *Connector) SortBy(columnID string, additive bool) error {
	col, ok := c.columns[columnID]
	if !ok {
		return fmt.Errorf("sort by %q: %w", columnID, ErrUnknownColumn)
	}
	if !col.State.Sortable {
		return fmt.Errorf("sort by %q: %w", columnID, ErrNotSortable)
	}
	c.setSortOrder(nextSortOrder(c.sortOrder, columnID, additive))

	if slices.Equal(c.sortOrder, c.serverSortOrder()) {
		return nil
	}
	ids, dirs := splitSortOrder(c.sortOrder)
	c.server.Sort(ids, dirs, true)
	return nil
}

func (c *Connector) serverSortOrder() []SortOrder {
	var ids []string
	var dirs []protocol.SortDirection
	if c.state.SortColumns != nil {
		ids = *c.state.SortColumns
	}
	if c.state.SortDirs != nil {
		dirs = *c.state.SortDirs
	}
	return buildSortOrder(ids, dirs)
}

func (c *Connector) setSortOrder(order []SortOrder) {
	c.sortOrder = order
	c.widget.SetSortOrder(slices.Clone(order))
}
