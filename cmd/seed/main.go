// Command seed fills the users table with sample rows for local development.
// It goes through the repository layer so the same validation-adjacent
// behavior (timestamps, unique emails) applies as in the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/mkarlis/go-users-backend/internal/config"
	"github.com/mkarlis/go-users-backend/internal/domain"
	"github.com/mkarlis/go-users-backend/internal/repo"
	"github.com/mkarlis/go-users-backend/internal/sysutil"
)

var (
	firstNames = []string{"Alice", "Bob", "Carol", "Dave", "Erin", "Frank", "Grace", "Heidi", "Ivan", "Judy"}
	lastNames  = []string{"Smith", "Jones", "Brown", "Taylor", "Wilson", "Evans", "Walker", "Wright", "Hall", "Green"}
)

func main() {
	n := flag.Int("n", 25, "number of users to create")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)

	db, err := repo.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	created := 0
	for i := 0; i < *n; i++ {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		u := &domain.User{
			FirstName: first,
			LastName:  last,
			Email:     fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), rng.Intn(100000)),
			IsActive:  rng.Intn(4) != 0, // roughly a quarter inactive
		}
		if _, err := repo.GetUserByEmail(ctx, db, u.Email); err == nil {
			continue // unlikely collision, skip
		}
		if err := repo.CreateUser(ctx, db, u); err != nil {
			log.Fatal().Err(err).Str("email", u.Email).Msg("seeding failed")
		}
		created++
	}
	log.Info().Int("created", created).Msg("seed complete")
}
