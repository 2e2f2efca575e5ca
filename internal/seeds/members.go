package seeds

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/vivaldi20/member-directory/internal/auth"
	"golang.org/x/crypto/bcrypt"
)

// DefaultMembersFile is the fixture loaded when no path is given.
const DefaultMembersFile = "internal/seeds/data/members.yaml"

// MemberFixture is one member entry in a seed file.
type MemberFixture struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	FirstName  string `yaml:"first_name"`
	LastName   string `yaml:"last_name"`
	Email      string `yaml:"email"`
	Profession string `yaml:"profession"`
	Bio        string `yaml:"bio"`
}

type membersFile struct {
	Members []MemberFixture `yaml:"members"`
}

// LoadMembers parses a members fixture file.
func LoadMembers(path string) ([]MemberFixture, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}

	var parsed membersFile
	if err := yaml.Unmarshal(file, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return parsed.Members, nil
}

// SeedMembers creates every fixture member whose username is not taken yet and
// returns how many were created. Fixtures go through the same validation as
// registration.
func SeedMembers(ctx context.Context, store auth.Store, members []MemberFixture, cost int) (int, error) {
	created := 0
	for i, m := range members {
		input := m.registerInput()
		if errs := input.Validate(); errs.HasErrors() {
			return created, fmt.Errorf("member #%d (%q): %s", i+1, m.Username, describe(errs))
		}
		username := *input.Username

		exists, err := store.UsernameExists(ctx, username, 0)
		if err != nil {
			return created, fmt.Errorf("DB error on member %s: %w", username, err)
		}
		if exists {
			log.Printf("⚠️ Member exists, skipping: %s", username)
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(m.Password), cost)
		if err != nil {
			return created, fmt.Errorf("hash password for %s: %w", username, err)
		}

		user := auth.User{
			HashedPassword: string(hashed),
			Profession:     auth.DefaultProfession,
			Bio:            auth.DefaultBio,
		}
		input.Apply(&user)

		if err := store.CreateUser(ctx, &user); err != nil {
			return created, fmt.Errorf("failed to create member %s: %w", username, err)
		}
		created++
	}

	log.Printf("✅ Seeded %d members", created)
	return created, nil
}

func (m MemberFixture) registerInput() auth.RegisterInput {
	optional := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}

	username, password := m.Username, m.Password
	return auth.RegisterInput{
		ProfileInput: auth.ProfileInput{
			Username:   &username,
			FirstName:  optional(m.FirstName),
			LastName:   optional(m.LastName),
			Email:      optional(m.Email),
			Profession: optional(m.Profession),
			Bio:        optional(m.Bio),
		},
		Password: &password,
	}
}

func describe(errs map[string][]string) string {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(errs[field], " "))
	}
	return strings.Join(parts, "; ")
}
