package main

import (
	"github.com/devshad-01/alx-project-nexus/internal/config"
	"github.com/devshad-01/alx-project-nexus/internal/logger"
	"github.com/devshad-01/alx-project-nexus/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	// 分类
	categories := []models.Category{
		{Slug: "electronics", Name: "Electronics", Description: "Phones, laptops and other gadgets", SortOrder: 1},
		{Slug: "books", Name: "Books", Description: "Paperbacks, hardcovers and textbooks", SortOrder: 2},
		{Slug: "fashion", Name: "Fashion", Description: "Clothing, shoes and accessories", SortOrder: 3},
	}
	categoryIDs := make(map[string]uint, len(categories))
	for _, category := range categories {
		existing := models.Category{}
		if err := models.DB.Where("slug = ?", category.Slug).First(&existing).Error; err == nil {
			categoryIDs[category.Slug] = existing.ID
			continue
		}
		category.IsActive = true
		if err := models.DB.Create(&category).Error; err != nil {
			stdLog.Fatalf("Failed to seed category %s: %v", category.Slug, err)
		}
		categoryIDs[category.Slug] = category.ID
	}

	// 商品
	products := []struct {
		categorySlug string
		product      models.Product
	}{
		{
			categorySlug: "electronics",
			product: models.Product{
				Slug:          "wireless-earbuds",
				SKU:           "ELEC-0001",
				Name:          "Wireless Earbuds",
				Description:   "Bluetooth 5.3 earbuds with charging case",
				Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(59.99)),
				StockQuantity: 120,
				Images:        models.StringArray{"/uploads/products/wireless-earbuds.jpg"},
				IsActive:      true,
				IsFeatured:    true,
				SortOrder:     1,
			},
		},
		{
			categorySlug: "electronics",
			product: models.Product{
				Slug:          "usb-c-charger-65w",
				SKU:           "ELEC-0002",
				Name:          "USB-C Charger 65W",
				Description:   "GaN fast charger with dual ports",
				Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(29.50)),
				StockQuantity: 200,
				IsActive:      true,
				SortOrder:     2,
			},
		},
		{
			categorySlug: "books",
			product: models.Product{
				Slug:          "the-go-programming-language",
				SKU:           "BOOK-0001",
				Name:          "The Go Programming Language",
				Description:   "Donovan and Kernighan's reference for Go developers",
				Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(42.00)),
				StockQuantity: 35,
				IsActive:      true,
				SortOrder:     1,
			},
		},
		{
			categorySlug: "fashion",
			product: models.Product{
				Slug:          "classic-denim-jacket",
				SKU:           "FASH-0001",
				Name:          "Classic Denim Jacket",
				Description:   "Unisex denim jacket, stonewashed",
				Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(75.00)),
				StockQuantity: 48,
				IsActive:      true,
				SortOrder:     1,
			},
		},
	}
	for _, seed := range products {
		existing := models.Product{}
		if err := models.DB.Where("slug = ?", seed.product.Slug).First(&existing).Error; err == nil {
			continue
		}
		seed.product.CategoryID = categoryIDs[seed.categorySlug]
		if err := models.DB.Create(&seed.product).Error; err != nil {
			stdLog.Fatalf("Failed to seed product %s: %v", seed.product.Slug, err)
		}
	}

	stdLog.Printf("Seed completed: %d categories, %d products", len(categories), len(products))
}
