package model

import "fmt"

// RunConfig holds everything a refine or cascade run reads from its config
// file. Command-line flags override individual fields.
type RunConfig struct {
	Refine   RefineSettings   `json:"refine"`
	Polish   PolishSettings   `json:"polish"`
	Rotation RotationSettings `json:"rotation"`
	Cascade  CascadeSettings  `json:"cascade"`

	Groups   string `json:"groups"`   // e.g. "1-20,35"; empty selects every group
	Seed     int64  `json:"seed"`     // base seed, each group uses Seed+N
	Workers  int    `json:"workers"`  // 0 = one per CPU
	Decimals int    `json:"decimals"` // digits written to the submission
	Timeout  string `json:"timeout"`  // time.ParseDuration format, empty = no limit

	// Storage settings used when an input or output path is an s3:// URL.
	S3Region string `json:"s3_region"`
}

// DefaultRunConfig returns a RunConfig populated with the default settings
// of every stage.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Refine:   DefaultRefineSettings(),
		Polish:   DefaultPolishSettings(),
		Rotation: DefaultRotationSettings(),
		Cascade:  DefaultCascadeSettings(),
		Seed:     42,
		Decimals: 12,
		S3Region: "us-east-1",
	}
}

// Validate checks every stage's settings.
func (c RunConfig) Validate() error {
	if err := c.Refine.Validate(); err != nil {
		return err
	}
	if err := c.Cascade.Validate(); err != nil {
		return err
	}
	if c.Decimals < 0 || c.Decimals > 17 {
		return fmt.Errorf("%w: decimals must be within 0..17", ErrInvalidSettings)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative", ErrInvalidSettings)
	}
	if _, err := ParseGroupList(c.Groups, MaxGroupSize); err != nil {
		return err
	}
	return nil
}
