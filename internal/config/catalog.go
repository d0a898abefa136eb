package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"stripbot/internal/core"
)

// CatalogFile overrides the built-in bank list and currency symbols.
// Empty sections keep the defaults.
type CatalogFile struct {
	CurrencySymbols []string    `toml:"currency_symbols"`
	Banks           []core.Bank `toml:"banks"`
}

// LoadCatalog reads the catalog file at path. An empty path yields the
// defaults.
func LoadCatalog(path string) (*core.BankCatalog, *core.Scanner, error) {
	if path == "" {
		return core.DefaultBankCatalog(), core.DefaultScanner(), nil
	}

	var f CatalogFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, nil, fmt.Errorf("catalog %s: unknown keys %v", path, undecoded)
	}

	catalog := core.DefaultBankCatalog()
	if len(f.Banks) > 0 {
		catalog = core.NewBankCatalog(f.Banks)
		if len(catalog.Names()) == 0 {
			return nil, nil, fmt.Errorf("catalog %s: no bank has a name", path)
		}
	}
	scanner := core.DefaultScanner()
	if len(f.CurrencySymbols) > 0 {
		scanner = core.NewScanner(f.CurrencySymbols)
	}
	return catalog, scanner, nil
}
