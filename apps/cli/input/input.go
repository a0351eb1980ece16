// Package input reads JSON documents given to CLI commands.
package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const maxInputBytes = 1 << 20

// Read returns the JSON document at path, or stdin when path is "-".
func Read(cmd *cobra.Command, path string) (json.RawMessage, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxInputBytes))
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	if !json.Valid(raw) {
		return nil, errors.New("configuration is not valid JSON")
	}
	return raw, nil
}
