package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jwkim/storefront-backend/config"
	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/repository"
	"github.com/jwkim/storefront-backend/internal/db"
	apperrors "github.com/jwkim/storefront-backend/internal/errors"
)

// Imports a product catalog from an XLSX file. Expected columns:
// name | description | price | stock | category | image urls (comma separated)
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	categoryRepo := repository.NewCategoryRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	products, err := readProductsFromXLSX(filePath, categoryRepo)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total products to import: %d\n", len(products))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	batchSize := 100
	if err := productRepo.BulkCreate(products, batchSize); err != nil {
		log.Fatal("Failed to bulk create products:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total products imported: %d\n", len(products))
}

func readProductsFromXLSX(filePath string, categoryRepo repository.CategoryRepository) ([]model.Product, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	// Category resolution is cached so repeated names hit the database once.
	categoryCache := make(map[string]*uint)

	var products []model.Product
	skippedCount := 0

	for i, row := range rows {
		if i == 0 {
			fmt.Printf("Headers: %v\n", row)
			continue
		}
		if len(row) < 4 {
			skippedCount++
			continue
		}

		name := strings.TrimSpace(row[0])
		description := ""
		if len(row) > 1 {
			description = strings.TrimSpace(row[1])
		}
		priceStr := strings.TrimSpace(row[2])
		stockStr := strings.TrimSpace(row[3])

		if name == "" || priceStr == "" {
			skippedCount++
			continue
		}

		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < 0 {
			skippedCount++
			continue
		}
		stock, err := strconv.Atoi(stockStr)
		if err != nil || stock < 0 {
			skippedCount++
			continue
		}

		product := model.Product{
			Name:        name,
			Description: description,
			Price:       price,
			Stock:       stock,
		}

		if len(row) > 4 {
			categoryName := strings.TrimSpace(row[4])
			if categoryName != "" {
				categoryID, err := resolveCategory(categoryRepo, categoryCache, categoryName)
				if err != nil {
					return nil, err
				}
				product.CategoryID = categoryID
			}
		}

		if len(row) > 5 {
			for pos, url := range strings.Split(row[5], ",") {
				url = strings.TrimSpace(url)
				if url == "" {
					continue
				}
				product.Images = append(product.Images, model.ProductImage{
					URL:      url,
					Position: pos,
				})
			}
		}

		products = append(products, product)
	}

	if skippedCount > 0 {
		fmt.Printf("Skipped %d invalid rows\n", skippedCount)
	}
	return products, nil
}

func resolveCategory(categoryRepo repository.CategoryRepository, cache map[string]*uint, name string) (*uint, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}

	category, err := categoryRepo.FindByName(name)
	if err != nil {
		if !apperrors.IsRecordNotFound(err) {
			return nil, fmt.Errorf("failed to look up category %q: %w", name, err)
		}
		category = &model.Category{Name: name}
		if err := categoryRepo.Create(category); err != nil {
			return nil, fmt.Errorf("failed to create category %q: %w", name, err)
		}
	}

	cache[name] = &category.ID
	return &category.ID, nil
}
