package core

import (
	"strings"
)

// Bank is one entry of the fixed bank list.
type Bank struct {
	Name    string   `toml:"name" json:"name"`
	Aliases []string `toml:"aliases" json:"aliases,omitempty"`
}

// DefaultBanks are the banks offered for deposit tracking.
var DefaultBanks = []Bank{
	{Name: "Nabil Bank", Aliases: []string{"nabil"}},
	{Name: "Nepal Investment Mega Bank", Aliases: []string{"nimb"}},
	{Name: "Global IME Bank", Aliases: []string{"gibl", "global ime"}},
	{Name: "NIC Asia Bank", Aliases: []string{"nic asia", "nica"}},
	{Name: "Himalayan Bank", Aliases: []string{"hbl"}},
	{Name: "Standard Chartered Bank Nepal", Aliases: []string{"scb", "standard chartered"}},
	{Name: "Everest Bank", Aliases: []string{"ebl"}},
	{Name: "Prabhu Bank", Aliases: []string{"prabhu"}},
	{Name: "Siddhartha Bank", Aliases: []string{"sbl"}},
	{Name: "Kumari Bank", Aliases: []string{"kumari"}},
	{Name: "Laxmi Sunrise Bank", Aliases: []string{"laxmi", "lsl"}},
	{Name: "Sanima Bank", Aliases: []string{"sanima"}},
	{Name: "Prime Commercial Bank", Aliases: []string{"pcbl", "prime"}},
	{Name: "NMB Bank", Aliases: []string{"nmb"}},
	{Name: "Machhapuchchhre Bank", Aliases: []string{"mbl"}},
	{Name: "Citizens Bank International", Aliases: []string{"citizens"}},
	{Name: "Agricultural Development Bank", Aliases: []string{"adbl"}},
	{Name: "Nepal Bank", Aliases: []string{"nbl"}},
	{Name: "Rastriya Banijya Bank", Aliases: []string{"rbb"}},
	{Name: "Nepal SBI Bank", Aliases: []string{"sbi"}},
}

// BankCatalog resolves user-typed bank names against a fixed list.
type BankCatalog struct {
	banks []Bank
	index map[string]string
}

// NewBankCatalog indexes banks by name and alias, case-insensitively.
// Later entries never shadow earlier ones.
func NewBankCatalog(banks []Bank) *BankCatalog {
	c := &BankCatalog{index: make(map[string]string)}
	for _, b := range banks {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			continue
		}
		if _, dup := c.index[bankKey(name)]; dup {
			continue
		}
		c.banks = append(c.banks, Bank{Name: name, Aliases: b.Aliases})
		c.index[bankKey(name)] = name
		for _, a := range b.Aliases {
			if k := bankKey(a); k != "" {
				if _, taken := c.index[k]; !taken {
					c.index[k] = name
				}
			}
		}
	}
	return c
}

func DefaultBankCatalog() *BankCatalog {
	return NewBankCatalog(DefaultBanks)
}

// WithCustom returns a copy extended with user-defined bank names.
func (c *BankCatalog) WithCustom(names ...string) *BankCatalog {
	if len(names) == 0 {
		return c
	}
	banks := append([]Bank(nil), c.banks...)
	for _, n := range names {
		banks = append(banks, Bank{Name: n})
	}
	return NewBankCatalog(banks)
}

// Lookup returns the canonical bank name for name or alias.
func (c *BankCatalog) Lookup(name string) (string, bool) {
	canonical, ok := c.index[bankKey(name)]
	return canonical, ok
}

// Resolve is Lookup returning a ValidationError for unknown names.
func (c *BankCatalog) Resolve(name string) (string, error) {
	if canonical, ok := c.Lookup(name); ok {
		return canonical, nil
	}
	return "", &ValidationError{Field: "bank", Value: name, Err: ErrUnknownBank}
}

// Names lists canonical names in catalog order.
func (c *BankCatalog) Names() []string {
	out := make([]string, len(c.banks))
	for i, b := range c.banks {
		out[i] = b.Name
	}
	return out
}

func (c *BankCatalog) Banks() []Bank {
	return append([]Bank(nil), c.banks...)
}

func bankKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
