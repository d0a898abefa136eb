package core

import (
	"errors"
	"testing"
)

func TestBankCatalogLookup(t *testing.T) {
	c := DefaultBankCatalog()
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Nabil Bank", "Nabil Bank", true},
		{"  nabil   bank ", "Nabil Bank", true},
		{"NABIL", "Nabil Bank", true},
		{"gibl", "Global IME Bank", true},
		{"rbb", "Rastriya Banijya Bank", true},
		{"Unknown Bank", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := c.Lookup(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBankCatalogResolve(t *testing.T) {
	c := DefaultBankCatalog()
	if _, err := c.Resolve("Bank of Nowhere"); !errors.Is(err, ErrUnknownBank) {
		t.Fatalf("expected ErrUnknownBank, got %v", err)
	}
	name, err := c.Resolve("hbl")
	if err != nil || name != "Himalayan Bank" {
		t.Fatalf("Resolve(hbl) = %q, %v", name, err)
	}
}

func TestBankCatalogWithCustom(t *testing.T) {
	base := DefaultBankCatalog()
	ext := base.WithCustom("Cooperative Savings", "nabil bank", " ")

	if _, ok := base.Lookup("cooperative savings"); ok {
		t.Fatalf("base catalog must not change")
	}
	if got, ok := ext.Lookup("cooperative savings"); !ok || got != "Cooperative Savings" {
		t.Fatalf("custom bank not found: %q %v", got, ok)
	}
	if len(ext.Names()) != len(base.Names())+1 {
		t.Fatalf("duplicates or blanks should be ignored: %d vs %d", len(ext.Names()), len(base.Names()))
	}
	if base.WithCustom() != base {
		t.Fatalf("WithCustom without names should return the same catalog")
	}
}

func TestNewBankCatalogDeduplicates(t *testing.T) {
	c := NewBankCatalog([]Bank{
		{Name: "Alpha", Aliases: []string{"a"}},
		{Name: "alpha"},
		{Name: "Beta", Aliases: []string{"a", "b"}},
	})
	if names := c.Names(); len(names) != 2 {
		t.Fatalf("expected 2 banks, got %v", names)
	}
	if got, _ := c.Lookup("a"); got != "Alpha" {
		t.Fatalf("alias a should stay with Alpha, got %q", got)
	}
	if got, _ := c.Lookup("b"); got != "Beta" {
		t.Fatalf("alias b: got %q", got)
	}
}

func TestLineItems(t *testing.T) {
	batch, _ := DefaultPipeline().ProcessBatch([]string{"$123.45 and 12,50"})
	items := LineItems(NewDate(2025, 5, 1), "Nabil Bank", batch)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Value != "123.45" || items[0].DisplayValue != "123" || items[0].Kind != KindAmount {
		t.Fatalf("item 0: %+v", items[0])
	}
	if items[1].Value != "12.50" || items[1].DisplayValue != "12.50" || items[1].Date != "2025-05-01" {
		t.Fatalf("item 1: %+v", items[1])
	}
}
