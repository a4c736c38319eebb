package registry

import "testing"

func TestLookupTokenResolvesAliases(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"sol", "SOL"},
		{"WSOL", "SOL"},
		{"usdc", "USDC"},
		{"jupiter", "JUP"},
	}
	for _, tc := range cases {
		token, ok := LookupToken(tc.in)
		if !ok {
			t.Fatalf("LookupToken(%q) not found", tc.in)
		}
		if token.Symbol != tc.want {
			t.Fatalf("LookupToken(%q) = %s, want %s", tc.in, token.Symbol, tc.want)
		}
	}
	if _, ok := LookupToken("NOTATOKEN"); ok {
		t.Fatal("unknown symbol should not resolve")
	}
}

func TestLookupNetworkResolvesAliases(t *testing.T) {
	network, ok := LookupNetwork("eth")
	if !ok || network.Slug != "ethereum" {
		t.Fatalf("unexpected network: %+v", network)
	}
	if network.Kind != AddressKindEVM || network.EVMChainID != 1 {
		t.Fatalf("unexpected network fields: %+v", network)
	}
}

func TestValidateAddress(t *testing.T) {
	solanaNet, _ := LookupNetwork("solana")
	evmNet, _ := LookupNetwork("ethereum")

	if err := ValidateAddress(solanaNet, "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"); err != nil {
		t.Fatalf("valid solana address rejected: %v", err)
	}
	if err := ValidateAddress(solanaNet, "0x6B175474E89094C44Da98b954EedeAC495271d0F"); err == nil {
		t.Fatal("evm address must not validate as solana")
	}
	if err := ValidateAddress(evmNet, "0x6B175474E89094C44Da98b954EedeAC495271d0F"); err != nil {
		t.Fatalf("valid evm address rejected: %v", err)
	}
	if err := ValidateAddress(evmNet, "not-an-address"); err == nil {
		t.Fatal("garbage must not validate as evm")
	}
}
