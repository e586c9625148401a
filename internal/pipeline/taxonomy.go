package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lowfloat/catalystrun/internal/enrich"
)

// sectorTaxonomyFile is the on-disk shape of config/sector_taxonomy.yaml.
type sectorTaxonomyFile struct {
	Tickers []struct {
		Symbol          string  `yaml:"symbol"`
		Sector          string  `yaml:"sector"`
		Industry        string  `yaml:"industry"`
		SectorRelReturn float64 `yaml:"sector_rel_return"`
	} `yaml:"tickers"`
}

// loadSectorTaxonomy reads a ticker->SectorInfo table. A missing file is
// not an error: the sector provider simply reports identity values for
// every ticker, matching the "never block admission" discipline enrichment
// providers share.
func loadSectorTaxonomy(path string) (map[string]enrich.SectorInfo, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]enrich.SectorInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sector taxonomy: %w", err)
	}

	var f sectorTaxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sector taxonomy: %w", err)
	}

	out := make(map[string]enrich.SectorInfo, len(f.Tickers))
	for _, t := range f.Tickers {
		out[t.Symbol] = enrich.SectorInfo{Sector: t.Sector, Industry: t.Industry, SectorRelReturn: t.SectorRelReturn}
	}
	return out, nil
}

// tickerCIKFile is the on-disk shape of config/ticker_ciks.yaml.
type tickerCIKFile struct {
	Tickers []struct {
		Symbol string `yaml:"symbol"`
		CIK    int64  `yaml:"cik"`
	} `yaml:"tickers"`
}

// loadTickerCIKTable reads a ticker->CIK table backing the float and
// offering enrichment providers. A missing file degrades to an empty
// table, not an error.
func loadTickerCIKTable(path string) (map[string]int64, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ticker CIK table: %w", err)
	}

	var f tickerCIKFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse ticker CIK table: %w", err)
	}

	out := make(map[string]int64, len(f.Tickers))
	for _, t := range f.Tickers {
		out[t.Symbol] = t.CIK
	}
	return out, nil
}
