package config

import (
	"fmt"

	"github.com/cognitext/chaingram/pkg/chaingram/ingest"
	"github.com/cognitext/chaingram/pkg/chaingram/stoplist"
)

// Components holds the ingest components built from configuration.
type Components struct {
	Stops      *stoplist.Set
	Normalizer *ingest.Normalizer
}

// LoadComponents builds the normalizer stack from the configuration. A
// missing stoplist path yields an empty stopword set.
func LoadComponents(cfg Config) (*Components, error) {
	var stops *stoplist.Set
	if cfg.StoplistPath != "" {
		loaded, err := stoplist.Load(cfg.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		stops = loaded
	} else {
		stops = stoplist.New(nil)
	}

	return &Components{
		Stops:      stops,
		Normalizer: ingest.NewNormalizer(stops),
	}, nil
}
