package config

import (
	"errors"
	"time"
)

// DomainConfig holds the configurable rules applied to person records
type DomainConfig struct {
	// Field limits
	MaxFullNameLength int
	MaxTextLength     int
	MaxBioLength      int

	// Relation rules
	RequireOppositeGenderSpouse bool
	RequireParentGender         bool
	RequireDeathAfterBirth      bool

	// Read model
	TreeCacheTTL  time.Duration
	MaxListResult int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxFullNameLength: 200,
		MaxTextLength:     255,
		MaxBioLength:      5000,

		RequireOppositeGenderSpouse: true,
		RequireParentGender:         true,
		RequireDeathAfterBirth:      true,

		TreeCacheTTL:  5 * time.Minute,
		MaxListResult: 10000,
	}
}

// DevelopmentDomainConfig relaxes parent gender checks so imported
// datasets with inconsistent records can still be loaded.
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()
	config.RequireParentGender = false
	config.TreeCacheTTL = 30 * time.Second
	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.MaxFullNameLength <= 0 {
		return errors.New("MaxFullNameLength must be positive")
	}
	if c.MaxTextLength <= 0 || c.MaxBioLength <= 0 {
		return errors.New("text limits must be positive")
	}
	if c.TreeCacheTTL < 0 {
		return errors.New("TreeCacheTTL cannot be negative")
	}
	return nil
}
