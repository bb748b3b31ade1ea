package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/regdata/register-pipeline/internal/schemas"
)

// checkArtifact validates a written JSON artifact against its schema. A
// schema that cannot be located is a warning, not a failure; commands run
// from outside the repo tree.
func checkArtifact(schemaFile, artifactPath string) error {
	schemaPath := schemas.Resolve(schemaFile)
	if schemaPath == "" {
		fmt.Fprintf(os.Stderr, "Warning: schema %s not found, skipping artifact validation\n", schemaFile)
		return nil
	}

	if err := schemas.ValidateFile(schemaPath, artifactPath); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("artifact %s does not match its schema: %w", artifactPath, err)
		}
		fmt.Fprintf(os.Stderr, "Warning: could not validate artifact %s: %v\n", artifactPath, err)
	}
	return nil
}
