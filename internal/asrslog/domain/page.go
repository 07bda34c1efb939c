package asrslog

// DefaultPageSize matches the log viewer's rows per page.
const DefaultPageSize = 100

// Page is a window of table rows. FirstRow and LastRow are 1-based and
// inclusive for display; both are zero for an empty table.
type Page struct {
	Index      int
	Size       int
	TotalRows  int
	TotalPages int
	FirstRow   int
	LastRow    int
	Rows       []NormalizedRecord
}

// Page returns the rows of a zero-based page. Out of range indexes are
// clamped; an empty table has one empty page.
func (t *Table) Page(index, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := t.Len()
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if index >= pages {
		index = pages - 1
	}
	if index < 0 {
		index = 0
	}
	start := index * size
	end := start + size
	if end > total {
		end = total
	}
	page := Page{Index: index, Size: size, TotalRows: total, TotalPages: pages}
	if start < end {
		page.Rows = append([]NormalizedRecord(nil), t.rows[start:end]...)
		page.FirstRow = start + 1
		page.LastRow = end
	}
	return page
}
