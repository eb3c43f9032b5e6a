// Package agents holds the agent catalog and the structured-output pipeline:
// prompt building, JSON extraction, normalization and the repairing runner.
package agents

import "strings"

// Kind identifies one agent role. The set is closed.
type Kind int

const (
	Commander Kind = iota
	StockNews
	SectorNews
	FinancialAnalysis
	TrendAnalysis
)

// Definition is the static description of an agent kind.
type Definition struct {
	Kind Kind
	ID   string
	Name string
	// FullContext agents receive K-lines and minute-lines; the others only
	// get the quote and messages.
	FullContext bool
}

var definitions = [...]Definition{
	Commander:         {Kind: Commander, ID: "commander", Name: "指挥Agent", FullContext: true},
	StockNews:         {Kind: StockNews, ID: "stock_news", Name: "个股资讯Agent"},
	SectorNews:        {Kind: SectorNews, ID: "sector_news", Name: "板块资讯Agent"},
	FinancialAnalysis: {Kind: FinancialAnalysis, ID: "financial_analysis", Name: "个股分析Agent"},
	TrendAnalysis:     {Kind: TrendAnalysis, ID: "trend_analysis", Name: "走势分析Agent", FullContext: true},
}

func (k Kind) Valid() bool { return k >= Commander && k <= TrendAnalysis }

func (k Kind) Definition() Definition {
	if !k.Valid() {
		return Definition{Kind: k, ID: "unknown", Name: "unknown"}
	}
	return definitions[k]
}

func (k Kind) ID() string { return k.Definition().ID }

func (k Kind) Name() string { return k.Definition().Name }

func (k Kind) String() string { return k.ID() }

// Lookup resolves an agent id, ignoring case and surrounding space.
func Lookup(id string) (Kind, bool) {
	id = strings.TrimSpace(id)
	for _, d := range definitions {
		if strings.EqualFold(d.ID, id) {
			return d.Kind, true
		}
	}
	return 0, false
}

// All returns every kind in declaration order, commander first.
func All() []Kind {
	return []Kind{Commander, StockNews, SectorNews, FinancialAnalysis, TrendAnalysis}
}

// SubAgents returns the kinds that run before the commander.
func SubAgents() []Kind {
	return []Kind{StockNews, SectorNews, FinancialAnalysis, TrendAnalysis}
}
