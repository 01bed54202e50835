// Package config loads picturefill task files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/giobyte8/picturefill/internal/breakpoints"
	"github.com/giobyte8/picturefill/internal/models"
)

// DefaultTaskFile is looked up in the working directory when no task
// file is given.
const DefaultTaskFile = "picturefill.yaml"

var (
	// ErrTaskFileRead is returned when the task file cannot be read.
	ErrTaskFileRead = zerr.New("failed to read task file")

	// ErrTaskFileParse is returned when the task file is not valid YAML
	// or does not match the task file schema.
	ErrTaskFileParse = zerr.New("failed to parse task file")

	// ErrInvalidTaskFile is returned when the task file is well formed
	// but structurally incomplete.
	ErrInvalidTaskFile = zerr.New("invalid task file")
)

// Load reads and validates the task file at path.
func Load(path string) (*models.TaskFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrTaskFileRead, err)
	}

	return Parse(data)
}

// Parse decodes and validates task file content. Unknown keys are
// rejected so typos in option names do not go unnoticed.
func Parse(data []byte) (*models.TaskFile, error) {
	var taskFile models.TaskFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&taskFile); err != nil {
		return nil, errors.Join(ErrTaskFileParse, err)
	}

	if err := Validate(&taskFile); err != nil {
		return nil, err
	}
	return &taskFile, nil
}

// Validate checks the structure of the task file. Breakpoints are not
// checked here; they are sanitized when a target runs.
func Validate(taskFile *models.TaskFile) error {
	if len(taskFile.Targets) == 0 {
		return errors.Join(
			ErrInvalidTaskFile,
			errors.New("at least one target is required"),
		)
	}

	for _, name := range taskFile.TargetNames() {
		target := taskFile.Targets[name]
		if len(target.Files) == 0 {
			return errors.Join(
				ErrInvalidTaskFile,
				fmt.Errorf("target %s: 'files' is required", name),
			)
		}

		for i, group := range target.Files {
			if len(group.Src) == 0 {
				return errors.Join(
					ErrInvalidTaskFile,
					fmt.Errorf("target %s: files[%d].src is required", name, i),
				)
			}
			if group.Dest == "" {
				return errors.Join(
					ErrInvalidTaskFile,
					fmt.Errorf("target %s: files[%d].dest is required", name, i),
				)
			}
		}

		if target.Options.Concurrency < 0 {
			return errors.Join(
				ErrInvalidTaskFile,
				fmt.Errorf("target %s: options.concurrency must not be negative", name),
			)
		}
		if q := target.Options.Quality; q != nil && !breakpoints.ValidQuality(*q) {
			return errors.Join(
				ErrInvalidTaskFile,
				fmt.Errorf("target %s: options.quality must be within 1 and 100", name),
			)
		}
	}

	return nil
}
