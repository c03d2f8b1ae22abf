package pagination

// Pagination carries plain limit/offset paging parameters. Zero values mean
// "use the caller's defaults".
type Pagination struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// Normalize clamps the page parameters against the given defaults.
func (p Pagination) Normalize(defaultLimit, maxLimit int) Pagination {
	out := p
	if out.Limit <= 0 {
		out.Limit = defaultLimit
	}
	if maxLimit > 0 && out.Limit > maxLimit {
		out.Limit = maxLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}

type PageInfo struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// BuildPageInfo trims an over-fetched result set (limit+1 rows) and reports
// whether another page exists.
func BuildPageInfo[T any](items []*T, page Pagination) ([]*T, PageInfo) {
	info := PageInfo{Limit: page.Limit, Offset: page.Offset}
	if len(items) > page.Limit {
		info.HasMore = true
		items = items[:page.Limit]
	}
	return items, info
}
