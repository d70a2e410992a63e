package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	shopID := seedShop(ctx, pool)
	log.Printf("Using Shop ID: %s", shopID)

	categoryIDs := seedCategories(ctx, pool, shopID)
	productIDs := seedProducts(ctx, pool, shopID, categoryIDs)
	seedDiscounts(ctx, pool, shopID, categoryIDs, productIDs)
	seedCoupons(ctx, pool, shopID)

	log.Println("Seeding completed successfully!")
}

func seedShop(ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	var id uuid.UUID
	err := pool.QueryRow(ctx, `
		INSERT INTO shops (name, slug, plan, currency, default_tax_rate, order_tax_rate, shipping_flat)
		VALUES ('Demo Shop', 'demo', 'growth', 'USD', 19, 10, 5)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id;
	`).Scan(&id)
	if err != nil {
		log.Fatalf("Failed to seed shop: %v", err)
	}
	return id
}

func seedCategories(ctx context.Context, pool *pgxpool.Pool, shopID uuid.UUID) map[string]uuid.UUID {
	categories := []struct {
		Name string
		Slug string
	}{
		{"Apparel", "apparel"},
		{"Footwear", "footwear"},
		{"Accessories", "accessories"},
	}

	ids := make(map[string]uuid.UUID, len(categories))
	for _, c := range categories {
		var id uuid.UUID
		err := pool.QueryRow(ctx, `
			INSERT INTO categories (shop_id, name, slug)
			VALUES ($1, $2, $3)
			ON CONFLICT (shop_id, slug) DO UPDATE SET name = EXCLUDED.name
			RETURNING id;
		`, shopID, c.Name, c.Slug).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to seed category %s: %v", c.Slug, err)
		}
		ids[c.Slug] = id
	}
	log.Printf("Seeded %d categories", len(categories))
	return ids
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, shopID uuid.UUID, categoryIDs map[string]uuid.UUID) map[string]uuid.UUID {
	products := []struct {
		Name      string
		Slug      string
		SKU       string
		Price     string
		Inventory int32
		Category  string
		Variants  []struct {
			Name    string
			SKU     string
			Price   string
			Stock   int32
			Options string
		}
	}{
		{
			Name: "Classic Tee", Slug: "classic-tee", SKU: "TEE-001", Price: "25.00", Inventory: 100, Category: "apparel",
			Variants: []struct {
				Name    string
				SKU     string
				Price   string
				Stock   int32
				Options string
			}{
				{"Small / Black", "TEE-001-S-BLK", "", 40, `{"size":"S","color":"black"}`},
				{"Large / Black", "TEE-001-L-BLK", "27.00", 35, `{"size":"L","color":"black"}`},
			},
		},
		{
			Name: "Runner Sneaker", Slug: "runner-sneaker", SKU: "SNK-001", Price: "90.00", Inventory: 50, Category: "footwear",
		},
		{
			Name: "Canvas Belt", Slug: "canvas-belt", SKU: "BLT-001", Price: "15.00", Inventory: 200, Category: "accessories",
		},
	}

	ids := make(map[string]uuid.UUID, len(products))
	for _, p := range products {
		var id uuid.UUID
		err := pool.QueryRow(ctx, `
			INSERT INTO products (shop_id, name, slug, sku, price, inventory)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (shop_id, slug) DO UPDATE SET price = EXCLUDED.price, inventory = EXCLUDED.inventory
			RETURNING id;
		`, shopID, p.Name, p.Slug, p.SKU, p.Price, p.Inventory).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to seed product %s: %v", p.Slug, err)
		}
		ids[p.Slug] = id

		if catID, ok := categoryIDs[p.Category]; ok {
			if _, err := pool.Exec(ctx, `
				INSERT INTO product_categories (product_id, category_id)
				VALUES ($1, $2) ON CONFLICT DO NOTHING;
			`, id, catID); err != nil {
				log.Fatalf("Failed to link product %s to category: %v", p.Slug, err)
			}
		}

		for _, v := range p.Variants {
			var price any
			if v.Price != "" {
				price = v.Price
			}
			if _, err := pool.Exec(ctx, `
				INSERT INTO product_variants (product_id, name, sku, price, inventory, options)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT DO NOTHING;
			`, id, v.Name, v.SKU, price, v.Stock, v.Options); err != nil {
				log.Fatalf("Failed to seed variant %s: %v", v.SKU, err)
			}
		}
	}
	log.Printf("Seeded %d products", len(products))
	return ids
}

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool, shopID uuid.UUID, categoryIDs, productIDs map[string]uuid.UUID) {
	now := time.Now()

	if _, err := pool.Exec(ctx, `
		INSERT INTO discounts (shop_id, name, percentage, starts_at, ends_at, target_kind)
		VALUES ($1, 'Storewide Sale', 10, $2, $3, 'all');
	`, shopID, now.AddDate(0, 0, -1), now.AddDate(0, 1, 0)); err != nil {
		log.Fatalf("Failed to seed storewide discount: %v", err)
	}

	if catID, ok := categoryIDs["apparel"]; ok {
		if _, err := pool.Exec(ctx, `
			INSERT INTO discounts (shop_id, name, percentage, starts_at, ends_at, target_kind, target_category_id)
			VALUES ($1, 'Apparel Week', 20, $2, $3, 'category', $4);
		`, shopID, now.AddDate(0, 0, -1), now.AddDate(0, 0, 7), catID); err != nil {
			log.Fatalf("Failed to seed category discount: %v", err)
		}
	}

	if prodID, ok := productIDs["runner-sneaker"]; ok {
		if _, err := pool.Exec(ctx, `
			INSERT INTO discounts (shop_id, name, percentage, starts_at, ends_at, target_kind, single_product_id, available_in_store)
			VALUES ($1, 'Sneaker Launch', 15, $2, $3, 'single', $4, FALSE);
		`, shopID, now.AddDate(0, 0, -1), now.AddDate(0, 0, 14), prodID); err != nil {
			log.Fatalf("Failed to seed single product discount: %v", err)
		}
	}

	log.Println("Seeded discounts")
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, shopID uuid.UUID) {
	now := time.Now()

	if _, err := pool.Exec(ctx, `
		INSERT INTO discount_codes (shop_id, code, percentage, starts_at, ends_at, usage_limit)
		VALUES ($1, 'WELCOME10', 10, $2, $3, 500)
		ON CONFLICT (shop_id, code) DO NOTHING;
	`, shopID, now.AddDate(0, 0, -1), now.AddDate(0, 3, 0)); err != nil {
		log.Fatalf("Failed to seed coupon WELCOME10: %v", err)
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO discount_codes (shop_id, code, percentage, starts_at, ends_at, usage_limit)
		VALUES ($1, 'FLASH25', 25, $2, $3, 50)
		ON CONFLICT (shop_id, code) DO NOTHING;
	`, shopID, now.AddDate(0, 0, -1), now.AddDate(0, 0, 2)); err != nil {
		log.Fatalf("Failed to seed coupon FLASH25: %v", err)
	}

	log.Println("Seeded coupons")
}
