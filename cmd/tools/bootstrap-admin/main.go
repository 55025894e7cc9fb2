// Command bootstrap-admin creates or promotes an administrator account in the datastore.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gamebay/internal/models"
	"gamebay/internal/storage"
)

func main() {
	var (
		jsonPath    string
		postgresDSN string
		email       string
		username    string
		password    string
	)

	flag.StringVar(&jsonPath, "json", "", "Path to the JSON datastore (store.json)")
	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&email, "email", "", "Email address for the admin account")
	flag.StringVar(&username, "username", "admin", "Username for the admin account")
	flag.StringVar(&password, "password", "", "Password for the admin account")
	flag.Parse()

	if jsonPath == "" && postgresDSN == "" {
		fatalf("either --json or --postgres-dsn must be provided")
	}
	if jsonPath != "" && postgresDSN != "" {
		fatalf("only one datastore option may be provided")
	}
	if strings.TrimSpace(email) == "" {
		fatalf("--email is required")
	}
	if len(password) < 8 {
		fatalf("--password must be at least 8 characters")
	}
	if strings.TrimSpace(username) == "" {
		fatalf("--username cannot be empty")
	}

	repo, err := openRepository(jsonPath, postgresDSN)
	if err != nil {
		fatalf("open datastore: %v", err)
	}
	defer closeRepository(repo)

	user, created, err := bootstrapAdmin(repo, strings.TrimSpace(email), strings.TrimSpace(username), password)
	if err != nil {
		fatalf("bootstrap admin: %v", err)
	}

	state := "promoted"
	if created {
		state = "created"
	}
	fmt.Printf("Admin user %s (%s) %s successfully.\n", user.Email, user.Username, state)
	fmt.Println("Remember to rotate this password after the first login.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openRepository(jsonPath, postgresDSN string) (storage.Repository, error) {
	if jsonPath != "" {
		return storage.NewStorage(jsonPath)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return storage.NewPostgresRepository(ctx, postgresDSN)
}

func closeRepository(repo storage.Repository) {
	type closer interface {
		Close(context.Context) error
	}
	if c, ok := repo.(closer); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	}
}

// bootstrapAdmin promotes the existing account matching the email, or creates
// a fresh one. Existing account passwords are left alone.
func bootstrapAdmin(repo storage.Repository, email, username, password string) (models.User, bool, error) {
	normalizedEmail := strings.ToLower(email)
	users, err := repo.ListUsers()
	if err != nil {
		return models.User{}, false, err
	}
	for _, existing := range users {
		if existing.Email == normalizedEmail {
			if existing.IsAdmin {
				return existing, false, nil
			}
			if err := repo.SetUserAdmin(existing.ID, true); err != nil {
				return models.User{}, false, err
			}
			existing.IsAdmin = true
			return existing, false, nil
		}
	}

	user, err := repo.CreateUser(storage.CreateUserParams{
		Username: username,
		Email:    normalizedEmail,
		Password: password,
	})
	if err != nil {
		return models.User{}, false, err
	}
	if err := repo.SetUserAdmin(user.ID, true); err != nil {
		return models.User{}, false, err
	}
	user.IsAdmin = true
	return user, true, nil
}
