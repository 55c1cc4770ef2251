package dto

// Pagination is embedded in list filters bound from the query string.
type Pagination struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

// Normalize clamps page to >= 1 and limit to 1..100.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.Limit }

// ListResponse is the envelope returned by every paginated endpoint.
type ListResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func NewList[T any](items []T, total int64, p Pagination) *ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &ListResponse[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
}

type MessageResponse struct {
	Message string `json:"message"`
}
