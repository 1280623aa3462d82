package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type seedCategory struct {
	name, slug, description string
	products                []seedProduct
}

type seedProduct struct {
	name, slug, description string
	price                   float64
	images                  []string
}

type seedUser struct {
	name, email, phone, address string
	admin                       bool
}

const seedImageBase = "https://example.com/images/"

var seedCatalog = []seedCategory{
	{
		name: "Rau củ quả hữu cơ", slug: "rau-cu-qua-huu-co",
		description: "Các loại rau củ quả được trồng theo phương pháp hữu cơ, không sử dụng hóa chất độc hại.",
		products: []seedProduct{
			{name: "Cà chua hữu cơ", slug: "ca-chua-huu-co", price: 45000,
				description: "Cà chua hữu cơ tươi ngon, được trồng không sử dụng hóa chất.",
				images:      []string{"ca-chua-1.jpg", "ca-chua-2.jpg"}},
			{name: "Rau xà lách hữu cơ", slug: "rau-xa-lach-huu-co", price: 25000,
				description: "Rau xà lách tươi xanh, giòn ngon, an toàn cho sức khỏe.",
				images:      []string{"xa-lach-1.jpg"}},
		},
	},
	{
		name: "Trái cây hữu cơ", slug: "trai-cay-huu-co",
		description: "Trái cây tươi ngon được trồng hữu cơ, đảm bảo an toàn cho sức khỏe.",
		products: []seedProduct{
			{name: "Táo hữu cơ", slug: "tao-huu-co", price: 120000,
				description: "Táo hữu cơ giòn ngọt, giàu vitamin và chất xơ.",
				images:      []string{"tao-1.jpg", "tao-2.jpg"}},
			{name: "Chuối hữu cơ", slug: "chuoi-huu-co", price: 35000,
				description: "Chuối hữu cơ chín tự nhiên, giàu kali và vitamin B6.",
				images:      []string{"chuoi-1.jpg"}},
		},
	},
	{
		name: "Gạo và ngũ cốc hữu cơ", slug: "gao-va-ngu-coc-huu-co",
		description: "Gạo và các loại ngũ cốc được trồng theo tiêu chuẩn hữu cơ.",
		products: []seedProduct{
			{name: "Gạo lứt hữu cơ", slug: "gao-lut-huu-co", price: 85000,
				description: "Gạo lứt hữu cơ giàu chất xơ và vitamin.",
				images:      []string{"gao-lut-1.jpg"}},
		},
	},
	{
		name: "Thịt và hải sản hữu cơ", slug: "thit-va-hai-san-huu-co",
		description: "Thịt và hải sản được nuôi trồng theo phương pháp hữu cơ.",
		products: []seedProduct{
			{name: "Thịt bò hữu cơ", slug: "thit-bo-huu-co", price: 450000,
				description: "Thịt bò hữu cơ tươi ngon, được nuôi theo tiêu chuẩn hữu cơ.",
				images:      []string{"thit-bo-1.jpg", "thit-bo-2.jpg"}},
		},
	},
	{
		name: "Sữa và sản phẩm từ sữa", slug: "sua-va-san-pham-tu-sua",
		description: "Sữa và các sản phẩm từ sữa hữu cơ.",
		products: []seedProduct{
			{name: "Sữa tươi hữu cơ", slug: "sua-tuoi-huu-co", price: 55000,
				description: "Sữa tươi hữu cơ giàu canxi và protein.",
				images:      []string{"sua-tuoi-1.jpg"}},
		},
	},
	{
		name: "Gia vị và thảo mộc", slug: "gia-vi-va-thao-moc",
		description: "Các loại gia vị và thảo mộc hữu cơ.",
		products: []seedProduct{
			{name: "Mật ong hữu cơ", slug: "mat-ong-huu-co", price: 180000,
				description: "Mật ong hữu cơ nguyên chất, tốt cho sức khỏe.",
				images:      []string{"mat-ong-1.jpg"}},
		},
	},
}

var seedUsers = []seedUser{
	{name: "Admin", email: "admin@organic.com", phone: "0123456789", address: "123 Đường ABC, Quận 1, TP.HCM", admin: true},
	{name: "Nguyễn Văn A", email: "user1@example.com", phone: "0987654321", address: "456 Đường XYZ, Quận 2, TP.HCM"},
	{name: "Trần Thị B", email: "user2@example.com", phone: "0912345678", address: "789 Đường DEF, Quận 3, TP.HCM"},
	{name: "Lê Văn C", email: "user3@example.com", phone: "0923456789", address: "321 Đường GHI, Quận 4, TP.HCM"},
}

// seedPassword is shared by every demo account.
const seedPassword = "password"

// Seed loads the demo catalog and accounts into an empty database.
// It is a no-op once any category exists.
func (s *Store) Seed(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Store.Seed")
	defer span.End()

	var existing int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&existing); err != nil {
		return fmt.Errorf("seed: count categories: %w", err)
	}
	if existing > 0 {
		s.logger.Debug("seed skipped, catalog not empty", zap.Int("categories", existing))
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed: hash password: %w", err)
	}

	err = s.withRetry(ctx, "seed", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := s.seedTx(ctx, tx, string(hash)); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	s.logger.Info("seed data loaded",
		zap.Int("categories", len(seedCatalog)),
		zap.Int("users", len(seedUsers)),
	)
	return nil
}

func (s *Store) seedTx(ctx context.Context, tx *sql.Tx, passwordHash string) error {
	now := time.Now().UTC().Unix()

	insertCategory := s.dialect.rebind(`INSERT INTO categories (name, slug, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	insertProduct := s.dialect.rebind(`INSERT INTO products (category_id, name, slug, price, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	insertImage := s.dialect.rebind(`INSERT INTO product_images (product_id, image_url, is_primary, created_at)
		VALUES (?, ?, ?, ?)`)
	insertUser := s.dialect.rebind(`INSERT INTO users (name, email, phone, address, password_hash, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	for _, c := range seedCatalog {
		var categoryID int64
		if err := tx.QueryRowContext(ctx, insertCategory, c.name, c.slug, c.description, true, now, now).Scan(&categoryID); err != nil {
			return fmt.Errorf("insert category %s: %w", c.slug, err)
		}
		for _, p := range c.products {
			var productID int64
			if err := tx.QueryRowContext(ctx, insertProduct,
				categoryID, p.name, p.slug, p.price, p.description, true, now, now,
			).Scan(&productID); err != nil {
				return fmt.Errorf("insert product %s: %w", p.slug, err)
			}
			for i, img := range p.images {
				if _, err := tx.ExecContext(ctx, insertImage, productID, seedImageBase+img, i == 0, now); err != nil {
					return fmt.Errorf("insert image %s: %w", img, err)
				}
			}
		}
	}

	for _, u := range seedUsers {
		if _, err := tx.ExecContext(ctx, insertUser,
			u.name, u.email, u.phone, u.address, passwordHash, u.admin, now, now,
		); err != nil {
			return fmt.Errorf("insert user %s: %w", u.email, err)
		}
	}
	return nil
}
