package report

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed assets/logo.png
var defaultLogo []byte

// LoadLogo returns the letterhead image at path, or the embedded one when path is empty.
func LoadLogo(path string) ([]byte, error) {
	if path == "" {
		return defaultLogo, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read logo: %w", err)
	}
	return b, nil
}
