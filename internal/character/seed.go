package character

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML shape of a character seed file:
//
//	characters:
//	  - name: Rahul
//	    personality_traits: sarcastic, cricket-obsessed
//	    speaking_style: Hinglish one-liners
type seedFile struct {
	Characters []Input `yaml:"characters"`
}

// SeedFromFile creates the characters listed in a YAML file. A missing
// path is not an error; seeding is optional. Returns the number of
// characters created.
func (s *Service) SeedFromFile(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("character seed file not found, skipping", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	created := 0
	for _, input := range seed.Characters {
		if _, err := s.Create(ctx, input); err != nil {
			return created, fmt.Errorf("seed character %q: %w", input.Name, err)
		}
		created++
	}

	s.logger.Info("characters seeded", "path", path, "count", created)
	return created, nil
}
