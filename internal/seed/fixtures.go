package seed

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures are hand-written records created before generated data.
type Fixtures struct {
	Users []UserFixture `yaml:"users"`
	Blogs []BlogFixture `yaml:"blogs"`
}

type UserFixture struct {
	FullName     string `yaml:"fullName"`
	Email        string `yaml:"email"`
	MobileNumber string `yaml:"mobileNumber"`
	Role         string `yaml:"role"`
}

// BlogFixture references its author by email.
type BlogFixture struct {
	Author string   `yaml:"author"`
	Title  string   `yaml:"title"`
	Body   string   `yaml:"body"`
	Status string   `yaml:"status"`
	Tags   []string `yaml:"tags"`
}

// DefaultFixtures returns the fixtures bundled with the binary.
func DefaultFixtures() (*Fixtures, error) {
	return parseFixtures(defaultFixtures)
}

// LoadFixtures reads fixtures from a YAML file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return parseFixtures(data)
}

func parseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	emails := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		if u.Email == "" {
			return nil, fmt.Errorf("fixture user %q has no email", u.FullName)
		}
		emails[u.Email] = true
	}
	for _, b := range f.Blogs {
		if !emails[b.Author] {
			return nil, fmt.Errorf("fixture blog %q references unknown author %q", b.Title, b.Author)
		}
	}
	return &f, nil
}
