package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupProductServiceTest(t *testing.T, name string) (*gorm.DB, *ProductService) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}, &models.Review{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	svc := NewProductService(
		repository.NewProductRepository(db),
		repository.NewCategoryRepository(db),
		repository.NewReviewRepository(db),
	)
	return db, svc
}

func createProductTestCategory(t *testing.T, db *gorm.DB, slug string) models.Category {
	t.Helper()
	category := models.Category{Slug: slug, Name: "Category " + slug, IsActive: true}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	return category
}

func moneyPtr(value string) *models.Money {
	m := models.NewMoneyFromDecimal(decimal.RequireFromString(value))
	return &m
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func TestCreateProductValidation(t *testing.T) {
	db, svc := setupProductServiceTest(t, "product_validate")
	category := createProductTestCategory(t, db, "validated")

	if _, err := svc.CreateProduct(ProductInput{Name: " ", CategoryID: &category.ID, Price: moneyPtr("10.00")}); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected name required, got: %v", err)
	}
	if _, err := svc.CreateProduct(ProductInput{Name: "No Category", Price: moneyPtr("10.00")}); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected category required, got: %v", err)
	}
	missing := uint(9999)
	if _, err := svc.CreateProduct(ProductInput{Name: "Ghost Category", CategoryID: &missing, Price: moneyPtr("10.00")}); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected missing category rejection, got: %v", err)
	}
	if _, err := svc.CreateProduct(ProductInput{Name: "No Price", CategoryID: &category.ID}); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected invalid price, got: %v", err)
	}
	if _, err := svc.CreateProduct(ProductInput{Name: "Negative", CategoryID: &category.ID, Price: moneyPtr("-1.00")}); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected negative price rejection, got: %v", err)
	}
	if _, err := svc.CreateProduct(ProductInput{Name: "Bad Stock", CategoryID: &category.ID, Price: moneyPtr("1.00"), Stock: intPtr(-5)}); !errors.Is(err, ErrInvalidStockQuantity) {
		t.Fatalf("expected invalid stock, got: %v", err)
	}
}

func TestCreateProductNormalizesSlugAndSKU(t *testing.T) {
	db, svc := setupProductServiceTest(t, "product_create")
	category := createProductTestCategory(t, db, "normalized")

	product, err := svc.CreateProduct(ProductInput{
		Name:       "Wireless Earbuds Pro",
		CategoryID: &category.ID,
		SKU:        " elec-0001 ",
		Price:      moneyPtr("59.99"),
		Stock:      intPtr(10),
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}
	if product.Slug != "wireless-earbuds-pro" {
		t.Fatalf("expected generated slug, got %s", product.Slug)
	}
	if product.SKU != "ELEC-0001" {
		t.Fatalf("expected uppercased SKU, got %s", product.SKU)
	}
	if !product.IsActive {
		t.Fatalf("expected new product active by default")
	}

	if _, err := svc.CreateProduct(ProductInput{
		Name:       "Wireless Earbuds Pro",
		CategoryID: &category.ID,
		Price:      moneyPtr("10.00"),
	}); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("expected slug conflict, got: %v", err)
	}
	if _, err := svc.CreateProduct(ProductInput{
		Name:       "Different Name",
		CategoryID: &category.ID,
		SKU:        "ELEC-0001",
		Price:      moneyPtr("10.00"),
	}); !errors.Is(err, ErrSKUExists) {
		t.Fatalf("expected SKU conflict, got: %v", err)
	}

	// 未指定 SKU 时从 slug 派生，多个无 SKU 商品互不冲突
	first, err := svc.CreateProduct(ProductInput{
		Name:       "No SKU One",
		CategoryID: &category.ID,
		Price:      moneyPtr("5.00"),
	})
	if err != nil {
		t.Fatalf("CreateProduct without SKU error: %v", err)
	}
	if first.SKU != "NO-SKU-ONE" {
		t.Fatalf("expected derived SKU NO-SKU-ONE, got %q", first.SKU)
	}
	second, err := svc.CreateProduct(ProductInput{
		Name:       "No SKU Two",
		CategoryID: &category.ID,
		Price:      moneyPtr("5.00"),
	})
	if err != nil {
		t.Fatalf("second CreateProduct without SKU error: %v", err)
	}
	if second.SKU == first.SKU {
		t.Fatalf("expected distinct derived SKUs, both %q", first.SKU)
	}
}

func TestUpdateProductPartial(t *testing.T) {
	db, svc := setupProductServiceTest(t, "product_update")
	category := createProductTestCategory(t, db, "updated")

	product, err := svc.CreateProduct(ProductInput{
		Name:       "Original",
		CategoryID: &category.ID,
		SKU:        "ORIG-0001",
		Price:      moneyPtr("10.00"),
		Stock:      intPtr(5),
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	id := fmt.Sprint(product.ID)
	updated, err := svc.UpdateProduct(id, ProductInput{Price: moneyPtr("12.50"), IsFeatured: boolPtr(true)})
	if err != nil {
		t.Fatalf("UpdateProduct error: %v", err)
	}
	if !updated.Price.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("expected price 12.50, got %s", updated.Price.String())
	}
	if updated.Name != "Original" || updated.SKU != "ORIG-0001" || updated.StockQuantity != 5 {
		t.Fatalf("partial update must not touch other fields: %+v", updated)
	}
	if !updated.IsFeatured {
		t.Fatalf("expected featured flag set")
	}

	if _, err := svc.UpdateProduct("9999", ProductInput{Name: "Missing"}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected product not found, got: %v", err)
	}
}

func TestDeleteProductHidesFromListing(t *testing.T) {
	db, svc := setupProductServiceTest(t, "product_delete")
	category := createProductTestCategory(t, db, "deleted")

	product, err := svc.CreateProduct(ProductInput{
		Name:       "Ephemeral",
		CategoryID: &category.ID,
		Price:      moneyPtr("5.00"),
		Stock:      intPtr(1),
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	id := fmt.Sprint(product.ID)
	if err := svc.DeleteProduct(id); err != nil {
		t.Fatalf("DeleteProduct error: %v", err)
	}
	if err := svc.DeleteProduct(id); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not found after delete, got: %v", err)
	}
	if _, err := svc.GetProductBySlug(product.Slug, false); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected deleted product hidden, got: %v", err)
	}

	_, total, err := svc.ListProducts(repository.ProductListFilter{Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("ListProducts error: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected empty listing, got %d", total)
	}
}

func TestDeleteProductRefusedWhenOrdered(t *testing.T) {
	db, svc := setupProductServiceTest(t, "product_delete_ref")
	category := createProductTestCategory(t, db, "ordered")

	product, err := svc.CreateProduct(ProductInput{
		Name:       "Keeper",
		CategoryID: &category.ID,
		Price:      moneyPtr("12.00"),
		Stock:      intPtr(3),
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	item := models.OrderItem{
		OrderID:     1,
		ProductID:   product.ID,
		ProductName: product.Name,
		ProductSKU:  product.SKU,
		UnitPrice:   product.Price,
		Quantity:    1,
		TotalPrice:  product.Price,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create order item failed: %v", err)
	}

	if err := svc.DeleteProduct(fmt.Sprint(product.ID)); !errors.Is(err, ErrProductReferenced) {
		t.Fatalf("expected delete refused for ordered product, got: %v", err)
	}
	if detail, err := svc.GetProductBySlug(product.Slug, false); err != nil || detail == nil {
		t.Fatalf("expected product to survive refused delete, got: %v", err)
	}
}

func TestListProductsFilters(t *testing.T) {
	db, svc := setupProductServiceTest(t, "product_filters")
	electronics := createProductTestCategory(t, db, "electronics")
	books := createProductTestCategory(t, db, "books")

	fixtures := []ProductInput{
		{Name: "Wireless Earbuds", CategoryID: &electronics.ID, Price: moneyPtr("59.99"), Stock: intPtr(10), IsFeatured: boolPtr(true)},
		{Name: "USB Charger", CategoryID: &electronics.ID, Price: moneyPtr("29.50"), Stock: intPtr(0)},
		{Name: "Go Programming Book", CategoryID: &books.ID, Price: moneyPtr("42.00"), Stock: intPtr(3)},
	}
	for _, input := range fixtures {
		if _, err := svc.CreateProduct(input); err != nil {
			t.Fatalf("CreateProduct error: %v", err)
		}
	}

	_, total, err := svc.ListProducts(repository.ProductListFilter{Page: 1, PageSize: 20, CategorySlug: "electronics"})
	if err != nil {
		t.Fatalf("list by category error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 electronics, got %d", total)
	}

	products, total, err := svc.ListProducts(repository.ProductListFilter{Page: 1, PageSize: 20, Search: "earbuds"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if total != 1 || products[0].Name != "Wireless Earbuds" {
		t.Fatalf("unexpected search result: total=%d %+v", total, products)
	}

	_, total, err = svc.ListProducts(repository.ProductListFilter{Page: 1, PageSize: 20, MinPrice: "30", MaxPrice: "60"})
	if err != nil {
		t.Fatalf("price range error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 products between 30 and 60, got %d", total)
	}

	_, total, err = svc.ListProducts(repository.ProductListFilter{Page: 1, PageSize: 20, OnlyInStock: true})
	if err != nil {
		t.Fatalf("in-stock filter error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 in-stock products, got %d", total)
	}

	_, total, err = svc.ListProducts(repository.ProductListFilter{Page: 1, PageSize: 20, OnlyFeatured: true})
	if err != nil {
		t.Fatalf("featured filter error: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 featured product, got %d", total)
	}
}

func TestProductDetailIncludesReviewAggregate(t *testing.T) {
	db, svc := setupProductServiceTest(t, "product_detail")
	category := createProductTestCategory(t, db, "reviewed")

	product, err := svc.CreateProduct(ProductInput{
		Name:       "Well Reviewed",
		CategoryID: &category.ID,
		Price:      moneyPtr("15.00"),
		Stock:      intPtr(5),
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	reviews := []models.Review{
		{ProductID: product.ID, UserID: 1, Rating: 5, Status: "approved"},
		{ProductID: product.ID, UserID: 2, Rating: 3, Status: "approved"},
		{ProductID: product.ID, UserID: 3, Rating: 1, Status: "rejected"},
	}
	for i := range reviews {
		if err := db.Create(&reviews[i]).Error; err != nil {
			t.Fatalf("create review failed: %v", err)
		}
	}

	detail, err := svc.GetProductBySlug(product.Slug, true)
	if err != nil {
		t.Fatalf("GetProductBySlug error: %v", err)
	}
	if detail.ReviewCount != 2 {
		t.Fatalf("expected 2 approved reviews, got %d", detail.ReviewCount)
	}
	if detail.AverageRating < 3.99 || detail.AverageRating > 4.01 {
		t.Fatalf("expected average 4.0, got %f", detail.AverageRating)
	}
}

func TestListProductsWithRatings(t *testing.T) {
	db, svc := setupProductServiceTest(t, "product_list_ratings")
	category := createProductTestCategory(t, db, "rated-list")

	rated, err := svc.CreateProduct(ProductInput{
		Name:       "Rated",
		CategoryID: &category.ID,
		Price:      moneyPtr("10.00"),
		Stock:      intPtr(5),
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}
	if _, err := svc.CreateProduct(ProductInput{
		Name:       "Unrated",
		CategoryID: &category.ID,
		Price:      moneyPtr("10.00"),
		Stock:      intPtr(5),
	}); err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	reviews := []models.Review{
		{ProductID: rated.ID, UserID: 1, Rating: 5, Status: "approved"},
		{ProductID: rated.ID, UserID: 2, Rating: 4, Status: "approved"},
	}
	for i := range reviews {
		if err := db.Create(&reviews[i]).Error; err != nil {
			t.Fatalf("create review failed: %v", err)
		}
	}

	details, total, err := svc.ListProductsWithRatings(repository.ProductListFilter{Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("ListProductsWithRatings error: %v", err)
	}
	if total != 2 || len(details) != 2 {
		t.Fatalf("expected 2 products, got total=%d len=%d", total, len(details))
	}
	for _, detail := range details {
		switch detail.ID {
		case rated.ID:
			if detail.ReviewCount != 2 || detail.AverageRating < 4.49 || detail.AverageRating > 4.51 {
				t.Fatalf("unexpected aggregate for rated product: count=%d avg=%f", detail.ReviewCount, detail.AverageRating)
			}
		default:
			if detail.ReviewCount != 0 || detail.AverageRating != 0 {
				t.Fatalf("expected zero aggregate for unrated product, got count=%d avg=%f", detail.ReviewCount, detail.AverageRating)
			}
		}
	}
}
