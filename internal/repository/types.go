package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page         int
	PageSize     int
	CategoryID   string
	CategorySlug string
	Search       string
	OnlyActive   bool
	OnlyFeatured bool
	OnlyInStock  bool
	MinPrice     string
	MaxPrice     string
	OrderBy      string
	WithCategory bool
}

// CategoryListFilter 查询分类列表的过滤条件
type CategoryListFilter struct {
	OnlyActive bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ReviewListFilter 查询评价列表的过滤条件
type ReviewListFilter struct {
	Page      int
	PageSize  int
	ProductID uint
	UserID    uint
	Status    string
	Rating    int
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page          int
	PageSize      int
	Keyword       string
	Status        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	LastLoginFrom *time.Time
	LastLoginTo   *time.Time
}
