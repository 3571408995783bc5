package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ErrInvalidJob is returned when a job file entry cannot be run.
var ErrInvalidJob = errors.New("invalid job")

// Job describes one SAFE product to deburst.
// Empty Swaths or Bands select every swath or band of the product.
type Job struct {
	SAFE   string   `yaml:"safe"`
	Swaths []int    `yaml:"swaths"`
	Bands  []string `yaml:"bands"`
	Output string   `yaml:"output"`
}

// JobFile is the document read by the deburst CLI.
type JobFile struct {
	Jobs []Job `yaml:"jobs"`
}

// LoadJobs reads and validates a YAML job file.
func LoadJobs(path string) (*JobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file %s: %w", path, err)
	}
	return ParseJobs(data)
}

// ParseJobs decodes a YAML job document.
func ParseJobs(data []byte) (*JobFile, error) {
	var jf JobFile
	if err := yaml.UnmarshalStrict(data, &jf); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}

	if len(jf.Jobs) == 0 {
		return nil, fmt.Errorf("%w: job file lists no jobs", ErrInvalidJob)
	}

	for i, job := range jf.Jobs {
		if err := job.Validate(); err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}
	}

	return &jf, nil
}

// Validate checks a single job entry.
func (j Job) Validate() error {
	if j.SAFE == "" {
		return fmt.Errorf("%w: safe is required", ErrInvalidJob)
	}
	for _, s := range j.Swaths {
		if s < 1 {
			return fmt.Errorf("%w: swath must be positive, got %d", ErrInvalidJob, s)
		}
	}
	for _, b := range j.Bands {
		if b == "" {
			return fmt.Errorf("%w: empty band", ErrInvalidJob)
		}
	}
	return nil
}
