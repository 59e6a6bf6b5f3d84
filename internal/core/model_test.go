package core_test

import (
	"testing"

	"bizbooks/internal/core"
)

func TestResolveCurrency(t *testing.T) {
	cases := []struct {
		name       string
		company    *core.Company
		wantSymbol string
		wantCode   string
	}{
		{"nil company gets the default", nil, "₦", "NGN"},
		{"unconfigured company gets the default", &core.Company{}, "₦", "NGN"},
		{"known symbol maps to its code", &core.Company{CurrencySymbol: strptr("$")}, "$", "USD"},
		{"explicit code wins over the mapping", &core.Company{CurrencySymbol: strptr("$"), CurrencyCode: strptr("CAD")}, "$", "CAD"},
		{"unknown symbol keeps the default code", &core.Company{CurrencySymbol: strptr("¤")}, "¤", "NGN"},
		{"empty strings count as unset", &core.Company{CurrencySymbol: strptr(""), CurrencyCode: strptr("")}, "₦", "NGN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			symbol, code := core.ResolveCurrency(tc.company)
			if symbol != tc.wantSymbol || code != tc.wantCode {
				t.Errorf("ResolveCurrency = %s/%s, want %s/%s", symbol, code, tc.wantSymbol, tc.wantCode)
			}
		})
	}
}

func TestBusinessTypeCode(t *testing.T) {
	if got := core.BusinessPrintingPress.TypeCode(); got != "PP" {
		t.Errorf("printing-press code = %s, want PP", got)
	}
	if got := core.BusinessManufacturing.TypeCode(); got != "MC" {
		t.Errorf("manufacturing code = %s, want MC", got)
	}
	if got := core.BusinessType("anything-else").TypeCode(); got != "GM" {
		t.Errorf("fallthrough code = %s, want GM", got)
	}
}
