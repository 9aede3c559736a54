package pkg

import "strconv"

const DefaultPerPage = 10

// Window 一次分页查询需要的位置信息
type Window struct {
	Number   int
	NumPages int
	Count    int64
	PerPage  int
	Offset   int
	Limit    int
}

// Resolve 解析页码：非数字回到第一页，越界（<1 或 >总页数）回到最后一页。
// 空集合也有一页。
func Resolve(raw string, count int64, perPage int) Window {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	numPages := 1
	if count > 0 {
		numPages = int((count + int64(perPage) - 1) / int64(perPage))
	}

	number, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		number = 1
	case number < 1 || number > numPages:
		number = numPages
	}

	offset := (number - 1) * perPage
	limit := perPage
	if rest := int(count) - offset; rest < limit {
		limit = max(rest, 0)
	}
	return Window{
		Number:   number,
		NumPages: numPages,
		Count:    count,
		PerPage:  perPage,
		Offset:   offset,
		Limit:    limit,
	}
}

// Page 分页结果，交给渲染层
type Page[T any] struct {
	Items       []T   `json:"object_list"`
	Number      int   `json:"number"`
	NumPages    int   `json:"num_pages"`
	Count       int64 `json:"count"`
	PerPage     int   `json:"per_page"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

func NewPage[T any](items []T, w Window) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		Number:      w.Number,
		NumPages:    w.NumPages,
		Count:       w.Count,
		PerPage:     w.PerPage,
		HasNext:     w.Number < w.NumPages,
		HasPrevious: w.Number > 1,
	}
}

// Paginate 对已在内存中的有序集合切片
func Paginate[T any](items []T, perPage int, raw string) Page[T] {
	w := Resolve(raw, int64(len(items)), perPage)
	return NewPage(items[w.Offset:w.Offset+w.Limit], w)
}

// Len 当前页的条数
func (p Page[T]) Len() int {
	return len(p.Items)
}
