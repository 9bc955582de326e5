package repository

// DirectoryQuery defines filters & pagination for the public supplier,
// venue and planner listings.  Page is 1-based.
type DirectoryQuery struct {
	Query       string
	Category    string
	City        string
	MinCapacity uint32
	Page        int
	PageSize    int
}

const maxPageSize = 100

// Normalize clamps the pagination fields in place.
func (q *DirectoryQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
}

func (q DirectoryQuery) limit() int {
	q.Normalize()
	return q.PageSize
}

func (q DirectoryQuery) offset() int {
	q.Normalize()
	return (q.Page - 1) * q.PageSize
}
