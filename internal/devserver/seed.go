package devserver

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/threatflux/violetearClient/internal/models"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout of a profile seed file
type seedFile struct {
	Profiles []seedProfile `yaml:"profiles"`
}

type seedProfile struct {
	models.Profile `yaml:",inline"`
	Config         map[string]interface{} `yaml:"config"`
}

// DefaultProfiles is served when no seed file is configured
func DefaultProfiles() []models.Profile {
	return []models.Profile{
		{ID: 1, MachineName: "clamav", HumanName: "ClamAV", Module: "clamav"},
		{ID: 2, MachineName: "yara-default", HumanName: "YARA (default rules)", Module: "yara", Config: json.RawMessage(`{"rules":"default"}`)},
		{ID: 3, MachineName: "strings", HumanName: "Strings extraction", Module: "strings"},
	}
}

// LoadProfiles reads a YAML seed file of profiles
func LoadProfiles(fs afero.Fs, path string) ([]models.Profile, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read profile seed %s", path)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errors.Wrapf(err, "failed to parse profile seed %s", path)
	}
	if len(seed.Profiles) == 0 {
		return nil, errors.Wrap(ErrProfilesMissing, path)
	}

	seen := make(map[string]bool, len(seed.Profiles))
	profiles := make([]models.Profile, 0, len(seed.Profiles))
	for i, sp := range seed.Profiles {
		p := sp.Profile
		if p.MachineName == "" {
			return nil, errors.Errorf("profile %d in %s has no machine_name", i, path)
		}
		if seen[p.MachineName] {
			return nil, errors.Errorf("duplicate profile %q in %s", p.MachineName, path)
		}
		seen[p.MachineName] = true

		if p.ID == 0 {
			p.ID = int64(i + 1)
		}
		if sp.Config != nil {
			raw, err := json.Marshal(sp.Config)
			if err != nil {
				return nil, errors.Wrapf(err, "profile %q has an invalid config", p.MachineName)
			}
			p.Config = raw
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
