package core

import "testing"

func TestDefinitionsForFlowSorted(t *testing.T) {
	for _, flow := range []Flow{FlowIn, FlowOut} {
		defs := DefinitionsForFlow(flow)
		if len(defs) != 6 {
			t.Fatalf("%s: expected 6 definitions, got %d", flow, len(defs))
		}
		for i := 1; i < len(defs); i++ {
			if defs[i-1].Order >= defs[i].Order {
				t.Fatalf("%s: not strictly ascending at %d: %d >= %d", flow, i, defs[i-1].Order, defs[i].Order)
			}
		}
		for _, d := range defs {
			if d.Flow != flow {
				t.Fatalf("%s: definition %s carries flow %s", flow, d.Key, d.Flow)
			}
		}
	}
	if got := DefinitionsForFlow(FlowIn)[0].Key; got != FundTransfer {
		t.Fatalf("first IN definition = %s", got)
	}
}

func TestDefinitionsForFlowReturnsCopy(t *testing.T) {
	defs := DefinitionsForFlow(FlowOut)
	defs[0].Aliases[0] = "mutated"
	defs[0].DisplayName = "mutated"
	again := DefinitionsForFlow(FlowOut)
	if again[0].DisplayName == "mutated" || again[0].Aliases[0] == "mutated" {
		t.Fatalf("registry was mutated through returned definitions")
	}
}

func TestFindByKey(t *testing.T) {
	d, ok := FindByKey(Reimbursement)
	if !ok || d.DisplayName != "立替費用" || d.Flow != FlowOut || d.Order != 40 {
		t.Fatalf("unexpected definition %+v ok=%v", d, ok)
	}
	if _, ok := FindByKey("nope"); ok {
		t.Fatalf("unknown key must be absent")
	}
	if d, ok := FindByFlowKey(FlowOut, FundTransfer); !ok || d.Order != 10 || d.Flow != FlowOut {
		t.Fatalf("fund_transfer under OUT: %+v ok=%v", d, ok)
	}
	if _, ok := FindByFlowKey(FlowIn, PersonalExpense); ok {
		t.Fatalf("personal_expense is OUT-only")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName(SiteRevenue); got != "サイト収益" {
		t.Fatalf("got %q", got)
	}
	if got := DisplayName("legacy_key"); got != "legacy_key" {
		t.Fatalf("unknown key should be returned verbatim, got %q", got)
	}
}

func TestNormalizeEveryAlias(t *testing.T) {
	for _, flow := range []Flow{FlowIn, FlowOut} {
		for _, d := range DefinitionsForFlow(flow) {
			for _, a := range d.Aliases {
				got, ok := Normalize(a)
				if !ok || got != d.Key {
					t.Fatalf("Normalize(%q) = %q,%v want %q", a, got, ok, d.Key)
				}
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want Category2Key
		ok   bool
	}{
		{"配当金受領", InvestmentIncome, true},
		{"  DIVIDEND  ", InvestmentIncome, true},
		{"ＦＸ Ｇａｉｎ", OtherInvestmentIncome, true},
		{"口座振替 3月分", FundTransfer, true},
		{"bank transfer fee", FundTransfer, true},
		{"その他投資収益", OtherInvestmentIncome, true},
		{"立替分精算", Reimbursement, true},
		{"capex 2025", InvestmentExpense, true},
		{"", "", false},
		{"   ", "", false},
		{"給与", "", false},
	}
	for _, tc := range cases {
		got, ok := Normalize(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Normalize(%q) = (%q,%v) want (%q,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIsValidPair(t *testing.T) {
	cases := []struct {
		flow Flow
		key  Category2Key
		want bool
	}{
		{FlowIn, FundTransfer, true},
		{FlowOut, FundTransfer, true},
		{FlowIn, PersonalExpense, false},
		{FlowOut, PersonalExpense, true},
		{FlowOut, SiteRevenue, false},
		{FlowIn, "unknown", false},
	}
	for _, tc := range cases {
		if got := IsValidPair(tc.flow, tc.key); got != tc.want {
			t.Fatalf("IsValidPair(%s,%s) = %v", tc.flow, tc.key, got)
		}
	}
	for _, flow := range []Flow{FlowIn, FlowOut} {
		in := make(map[Category2Key]bool)
		for _, d := range DefinitionsForFlow(flow) {
			in[d.Key] = true
		}
		for _, k := range Category2Keys() {
			if IsValidPair(flow, k) != in[k] {
				t.Fatalf("IsValidPair(%s,%s) disagrees with DefinitionsForFlow", flow, k)
			}
		}
	}
}

func TestBadgeFor(t *testing.T) {
	cases := []struct {
		flow Flow
		key  Category2Key
		want Badge
	}{
		{FlowIn, FundTransfer, Badge{"資金移動", badgeTransfer}},
		{FlowOut, FundTransfer, Badge{"資金移動", badgeTransfer}},
		{FlowIn, InvestmentIncome, Badge{"投資収益", badgeIn}},
		{FlowOut, OtherExpense, Badge{"その他支出", badgeOut}},
		{FlowOut, "raw text", Badge{Text: "raw text"}},
	}
	for _, tc := range cases {
		if got := BadgeFor(tc.flow, tc.key); got != tc.want {
			t.Fatalf("BadgeFor(%s,%s) = %+v", tc.flow, tc.key, got)
		}
	}
}

func TestEveryKeyRegisteredUnderAFlow(t *testing.T) {
	keys := Category2Keys()
	if len(keys) != 11 {
		t.Fatalf("expected 11 keys, got %d", len(keys))
	}
	for _, k := range keys {
		if !IsValidPair(FlowIn, k) && !IsValidPair(FlowOut, k) {
			t.Fatalf("%s is not registered under any flow", k)
		}
	}
}
