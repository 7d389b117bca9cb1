// Command seeder applies pending migrations and loads demo data: a handful of
// warungs with menus and deals, plus diner, operator, and admin accounts.
package main

import (
	"context"
	"log"
	"os"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/rizki-dev/backend-warung/internal/app"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	m, err := migrate.New("file://"+migrationsDir, strings.Replace(dbURL, "postgres://", "pgx5://", 1))
	if err != nil {
		log.Fatalf("Failed to initialise migrations: %v", err)
	}
	if err := app.RunMigrations(m); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations applied")

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedUsers(ctx, pool)
	seedRestaurants(ctx, pool)
	seedDeals(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) {
	users := []struct {
		Name  string
		Email string
		Role  string
	}{
		{"Admin Warung", "admin@warung.example", "admin"},
		{"Rizki Pratama", "rizki@warung.example", "operator"},
		{"Wati Suharto", "wati@warung.example", "operator"},
		{"Budi Santoso", "budi@example.com", "diner"},
		{"Siti Aminah", "siti@example.com", "diner"},
		{"Andi Wijaya", "andi@example.com", "diner"},
		{"Dewi Lestari", "dewi@example.com", "diner"},
		{"Eko Kurniawan", "eko@example.com", "diner"},
	}

	log.Println("Seeding users...")
	hash, err := app.HashPassword("rahasia123")
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}
	for _, u := range users {
		_, err := pool.Exec(ctx, `
			INSERT INTO users (name, email, password_hash, roles)
			VALUES ($1, $2, $3, ARRAY[$4])
			ON CONFLICT (email) DO NOTHING`,
			u.Name, u.Email, hash, u.Role)
		if err != nil {
			log.Printf("Failed to seed user %s: %v", u.Email, err)
		}
	}
}

func seedRestaurants(ctx context.Context, pool *pgxpool.Pool) {
	restaurants := []struct {
		Owner       string
		Name        string
		Slug        string
		Cuisine     string
		City        string
		Address     string
		Description string
		Tables      int
		Menu        []struct {
			Name     string
			Category string
			Price    int64
		}
	}{
		{
			Owner: "rizki@warung.example", Name: "Warung Nasi Uduk Bu Rizki", Slug: "warung-nasi-uduk-bu-rizki",
			Cuisine: "indonesian", City: "Jakarta", Address: "Jl. Sudirman No. 1", Tables: 12,
			Description: "Nasi uduk legendaris sejak 1998.",
			Menu: []struct {
				Name     string
				Category string
				Price    int64
			}{
				{"Nasi Uduk Komplit", "mains", 2500000},
				{"Nasi Goreng Kampung", "mains", 2200000},
				{"Ayam Goreng Lengkuas", "mains", 1800000},
				{"Es Teh Manis", "drinks", 500000},
				{"Es Jeruk", "drinks", 700000},
			},
		},
		{
			Owner: "rizki@warung.example", Name: "Sate Madura Pak Rizki", Slug: "sate-madura-pak-rizki",
			Cuisine: "madura", City: "Surabaya", Address: "Jl. Pahlawan No. 10", Tables: 8,
			Description: "Sate ayam dan kambing dengan bumbu kacang khas Madura.",
			Menu: []struct {
				Name     string
				Category string
				Price    int64
			}{
				{"Sate Ayam (10 tusuk)", "mains", 3000000},
				{"Sate Kambing (10 tusuk)", "mains", 4500000},
				{"Lontong", "sides", 500000},
				{"Teh Botol", "drinks", 600000},
			},
		},
		{
			Owner: "wati@warung.example", Name: "Rumah Makan Padang Sederhana", Slug: "rm-padang-sederhana",
			Cuisine: "padang", City: "Bandung", Address: "Jl. Braga No. 22", Tables: 20,
			Description: "Rendang dan gulai dengan resep turun temurun.",
			Menu: []struct {
				Name     string
				Category string
				Price    int64
			}{
				{"Rendang Daging", "mains", 3500000},
				{"Gulai Ayam", "mains", 2800000},
				{"Sayur Nangka", "sides", 1000000},
				{"Teh Talua", "drinks", 1200000},
			},
		},
	}

	log.Println("Seeding restaurants...")
	for _, r := range restaurants {
		var ownerID string
		if err := pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", r.Owner).Scan(&ownerID); err != nil {
			log.Printf("Skipping %s: owner %s not found: %v", r.Name, r.Owner, err)
			continue
		}

		var restID string
		err := pool.QueryRow(ctx, `
			INSERT INTO restaurants (owner_id, name, slug, cuisine, city, address, description, table_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (slug) DO UPDATE SET
				cuisine = EXCLUDED.cuisine,
				city = EXCLUDED.city,
				address = EXCLUDED.address,
				description = EXCLUDED.description,
				table_count = EXCLUDED.table_count
			RETURNING id`,
			ownerID, r.Name, r.Slug, r.Cuisine, r.City, r.Address, r.Description, r.Tables).Scan(&restID)
		if err != nil {
			log.Printf("Failed to seed restaurant %s: %v", r.Name, err)
			continue
		}

		for _, item := range r.Menu {
			_, err := pool.Exec(ctx, `
				INSERT INTO menu_items (restaurant_id, name, category, price_minor, available)
				SELECT $1, $2, $3, $4, true
				WHERE NOT EXISTS (
					SELECT 1 FROM menu_items WHERE restaurant_id = $1 AND name = $2
				)`, restID, item.Name, item.Category, item.Price)
			if err != nil {
				log.Printf("Failed to seed menu item %s: %v", item.Name, err)
			}
		}
	}
}

func seedDeals(ctx context.Context, pool *pgxpool.Pool) {
	deals := []struct {
		Restaurant string
		Title      string
		Kind       string
		PercentBps int
		Amount     int64
	}{
		{"warung-nasi-uduk-bu-rizki", "Diskon Makan Siang 10%", "percentage", 1000, 0},
		{"sate-madura-pak-rizki", "Potongan Rp15.000", "flat_amount", 0, 1500000},
		{"rm-padang-sederhana", "Promo Akhir Pekan 15%", "percentage", 1500, 0},
	}

	log.Println("Seeding deals...")
	for _, d := range deals {
		var restID string
		if err := pool.QueryRow(ctx, "SELECT id FROM restaurants WHERE slug = $1", d.Restaurant).Scan(&restID); err != nil {
			log.Printf("Skipping deal %q: restaurant %s not found: %v", d.Title, d.Restaurant, err)
			continue
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO deals (id, restaurant_id, title, kind, percent_bps, amount_minor, active, created_at, updated_at)
			SELECT gen_random_uuid(), $1, $2, $3, $4, $5, true, now(), now()
			WHERE NOT EXISTS (
				SELECT 1 FROM deals WHERE restaurant_id = $1 AND title = $2
			)`, restID, d.Title, d.Kind, d.PercentBps, d.Amount)
		if err != nil {
			log.Printf("Failed to seed deal %q: %v", d.Title, err)
		}
	}
}
