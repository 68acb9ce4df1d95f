// Command shopctl runs one-off operator tasks against the store database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/internal/repo"
	"github.com/Skotchmaster/radiant_bloom/internal/search"
	"github.com/Skotchmaster/radiant_bloom/internal/service"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
	"github.com/Skotchmaster/radiant_bloom/pkg/config"
	pkgdb "github.com/Skotchmaster/radiant_bloom/pkg/db"
	"github.com/Skotchmaster/radiant_bloom/pkg/events"
	"github.com/Skotchmaster/radiant_bloom/pkg/hash"
	"github.com/Skotchmaster/radiant_bloom/pkg/logging"
)

const usage = `usage: shopctl <command> [flags]

commands:
  create-admin     -email -password [-first] [-last]
  make-admin       -email
  seed-categories
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	_ = godotenv.Load()

	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logging.IntoContext(ctx, logging.New(cfg.LogLevel).With("service", "shopctl"))

	db, err := pkgdb.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer pkgdb.Close(db)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	r := repo.New(db)

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "create-admin":
		err = createAdmin(ctx, r, args)
	case "make-admin":
		err = makeAdmin(ctx, r, args)
	case "seed-categories":
		err = seedCategories(ctx, r, cfg)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func createAdmin(ctx context.Context, r *repo.GormRepo, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	email := fs.String("email", "", "admin email")
	password := fs.String("password", "", "admin password (min 6 chars)")
	first := fs.String("first", "Admin", "first name")
	last := fs.String("last", "User", "last name")
	_ = fs.Parse(args)

	addr := strings.ToLower(strings.TrimSpace(*email))
	if addr == "" || len(*password) < 6 {
		return errors.New("-email and a -password of at least 6 characters are required")
	}

	existing, err := r.UserByEmail(ctx, addr)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			fmt.Printf("%s is already an admin\n", addr)
			return nil
		}
		return r.UpdateUserFields(ctx, existing.ID, map[string]any{"role": models.RoleAdmin, "is_active": true})
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	pw, err := hash.HashPassword(*password)
	if err != nil {
		return err
	}
	u := &models.User{
		FirstName:     *first,
		LastName:      *last,
		Email:         addr,
		PasswordHash:  pw,
		Role:          models.RoleAdmin,
		IsActive:      true,
		EmailVerified: true,
	}
	if err := r.CreateUser(ctx, u); err != nil {
		return err
	}
	fmt.Printf("created admin %s (%s)\n", u.Email, u.ID)
	return nil
}

func makeAdmin(ctx context.Context, r *repo.GormRepo, args []string) error {
	fs := flag.NewFlagSet("make-admin", flag.ExitOnError)
	email := fs.String("email", "", "email of an existing user")
	_ = fs.Parse(args)

	u, err := r.UserByEmail(ctx, strings.TrimSpace(*email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no user with email %q", *email)
		}
		return err
	}
	if err := r.UpdateUserFields(ctx, u.ID, map[string]any{"role": models.RoleAdmin}); err != nil {
		return err
	}
	fmt.Printf("%s is now an admin\n", u.Email)
	return nil
}

var defaultCategories = []struct{ name, description string }{
	{"Skincare", "Cleansers, serums, moisturizers and treatments"},
	{"Makeup", "Face, eye and lip products"},
	{"Hair Care", "Shampoos, conditioners and styling"},
	{"Fragrance", "Perfumes and body mists"},
	{"Tools", "Brushes, sponges and beauty devices"},
}

func seedCategories(ctx context.Context, r *repo.GormRepo, cfg config.Config) error {
	catalog := service.NewCatalogService(r, search.Nop{}, events.Nop{}, cfg.LowStockDefault)

	for i, c := range defaultCategories {
		slug := service.Slugify(c.name)
		if _, err := r.CategoryBySlug(ctx, slug); err == nil {
			fmt.Printf("skip %s (exists)\n", slug)
			continue
		}

		name, desc, order := c.name, c.description, i+1
		cat, err := catalog.CreateCategory(ctx, transport.CategoryRequest{Name: &name, Description: &desc, SortOrder: &order})
		if err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		fmt.Printf("created %s\n", cat.Slug)
	}
	return nil
}
