package core

import (
	"sort"
	"strings"

	"golang.org/x/text/width"
)

// Category2Key identifies an entry of the fixed income/expense taxonomy.
type Category2Key string

const (
	FundTransfer          Category2Key = "fund_transfer"
	SiteRevenue           Category2Key = "site_revenue"
	OtherIncome           Category2Key = "other_income"
	InvestmentIncome      Category2Key = "investment_income"
	BondInterestIncome    Category2Key = "bond_interest_income"
	OtherInvestmentIncome Category2Key = "other_investment_income"
	CorporateExpense      Category2Key = "corporate_expense"
	PersonalExpense       Category2Key = "personal_expense"
	Reimbursement         Category2Key = "reimbursement"
	InvestmentExpense     Category2Key = "investment_expense"
	OtherExpense          Category2Key = "other_expense"
)

// Category2Definition describes a key as it appears under one flow.
type Category2Definition struct {
	Key         Category2Key
	DisplayName string
	Flow        Flow
	Order       int
	Aliases     []string
}

// Badge is the presentation of a category2 value.
type Badge struct {
	Text  string
	Class string
}

const (
	badgeTransfer = "bg-gray-100 text-gray-800"
	badgeIn       = "bg-green-100 text-green-800"
	badgeOut      = "bg-red-100 text-red-800"
)

type category2Entry struct {
	key         Category2Key
	displayName string
	aliases     []string
}

// registry is in iteration order; Normalize depends on it.
var registry = []category2Entry{
	{FundTransfer, "資金移動", []string{"資金移動", "振替", "fund transfer", "transfer"}},
	{SiteRevenue, "サイト収益", []string{"サイト収益", "売上", "売上入金", "site revenue"}},
	{OtherIncome, "その他収益", []string{"その他収益", "雑収入", "other income"}},
	{InvestmentIncome, "投資収益", []string{"投資収益", "配当", "分配金", "dividend", "distribution"}},
	{BondInterestIncome, "社債金利収益", []string{"社債金利収益", "債券利息", "bond interest", "coupon"}},
	{OtherInvestmentIncome, "その他投資収益", []string{"その他投資収益", "為替差益", "fx gain"}},
	{CorporateExpense, "法人支出", []string{"法人支出", "会社費用", "company expense"}},
	{PersonalExpense, "個人支出", []string{"個人支出", "生活費", "personal expense"}},
	{Reimbursement, "立替費用", []string{"立替費用", "立替分", "立替", "精算", "reimbursement"}},
	{InvestmentExpense, "投資支出", []string{"投資支出", "投資費用", "investment expense", "capex"}},
	{OtherExpense, "その他支出", []string{"その他支出", "雑費", "other expense"}},
}

// flowTables hold each flow's keys with their presentation order.
var flowTables = map[Flow]map[Category2Key]int{
	FlowIn: {
		FundTransfer:          10,
		SiteRevenue:           20,
		OtherIncome:           30,
		InvestmentIncome:      40,
		BondInterestIncome:    50,
		OtherInvestmentIncome: 60,
	},
	FlowOut: {
		FundTransfer:      10,
		CorporateExpense:  20,
		PersonalExpense:   30,
		Reimbursement:     40,
		InvestmentExpense: 50,
		OtherExpense:      60,
	},
}

var (
	registryIndex = func() map[Category2Key]int {
		idx := make(map[Category2Key]int, len(registry))
		for i, e := range registry {
			idx[e.key] = i
		}
		return idx
	}()

	// foldedAliases mirrors registry with aliases pre-folded for matching.
	foldedAliases = func() [][]string {
		out := make([][]string, len(registry))
		for i, e := range registry {
			for _, a := range e.aliases {
				out[i] = append(out[i], foldText(a))
			}
		}
		return out
	}()
)

func foldText(s string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(s)))
}

func (e category2Entry) definition(flow Flow, order int) Category2Definition {
	return Category2Definition{
		Key:         e.key,
		DisplayName: e.displayName,
		Flow:        flow,
		Order:       order,
		Aliases:     append([]string(nil), e.aliases...),
	}
}

// DefinitionsForFlow returns the definitions registered under flow sorted by
// ascending order. The slice is a fresh copy.
func DefinitionsForFlow(flow Flow) []Category2Definition {
	table := flowTables[flow]
	defs := make([]Category2Definition, 0, len(table))
	for key, order := range table {
		defs = append(defs, registry[registryIndex[key]].definition(flow, order))
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Order < defs[j].Order })
	return defs
}

// FindByKey looks a key up regardless of flow. The returned definition carries
// the first flow the key is registered under.
func FindByKey(key Category2Key) (Category2Definition, bool) {
	i, ok := registryIndex[key]
	if !ok {
		return Category2Definition{}, false
	}
	for _, flow := range []Flow{FlowIn, FlowOut} {
		if order, ok := flowTables[flow][key]; ok {
			return registry[i].definition(flow, order), true
		}
	}
	return Category2Definition{}, false
}

// FindByFlowKey looks a key up within a single flow.
func FindByFlowKey(flow Flow, key Category2Key) (Category2Definition, bool) {
	order, ok := flowTables[flow][key]
	if !ok {
		return Category2Definition{}, false
	}
	return registry[registryIndex[key]].definition(flow, order), true
}

// DisplayName returns the registered name or the key verbatim.
func DisplayName(key Category2Key) string {
	if i, ok := registryIndex[key]; ok {
		return registry[i].displayName
	}
	return string(key)
}

// Normalize resolves free text to a key. An exact alias match wins over a
// substring match; among substring matches the first key in registry order
// wins.
func Normalize(text string) (Category2Key, bool) {
	in := foldText(text)
	if in == "" {
		return "", false
	}
	for i, aliases := range foldedAliases {
		for _, a := range aliases {
			if in == a {
				return registry[i].key, true
			}
		}
	}
	for i, aliases := range foldedAliases {
		for _, a := range aliases {
			if strings.Contains(in, a) {
				return registry[i].key, true
			}
		}
	}
	return "", false
}

// IsValidPair reports whether key is registered under flow.
func IsValidPair(flow Flow, key Category2Key) bool {
	_, ok := flowTables[flow][key]
	return ok
}

// BadgeFor returns the badge for key under flow. Unknown keys keep their raw
// text and get no styling.
func BadgeFor(flow Flow, key Category2Key) Badge {
	if _, ok := registryIndex[key]; !ok {
		return Badge{Text: string(key)}
	}
	b := Badge{Text: DisplayName(key)}
	switch {
	case key == FundTransfer:
		b.Class = badgeTransfer
	case flow == FlowIn:
		b.Class = badgeIn
	case flow == FlowOut:
		b.Class = badgeOut
	}
	return b
}

// Category2Keys lists every key in registry order.
func Category2Keys() []Category2Key {
	keys := make([]Category2Key, len(registry))
	for i, e := range registry {
		keys[i] = e.key
	}
	return keys
}
