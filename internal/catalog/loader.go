package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for reading a catalog from the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based catalog loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "catalog-loader").Logger(),
	}
}

// Load reads and parses the YAML catalog at filePath.
func (l *fileLoader) Load(ctx context.Context, filePath string) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.logger.Info().Str("file", filePath).Msg("loading location catalog")

	data, err := os.ReadFile(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to read catalog file")
		return nil, fmt.Errorf("failed to read catalog file %s: %w", filePath, err)
	}

	c, err := Parse(data)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("invalid catalog file")
		return nil, fmt.Errorf("catalog file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("locations_loaded", len(c.slugs)).
		Str("timezone", c.tz.String()).
		Msg("location catalog loaded successfully")

	return c, nil
}
