package tier

import (
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Tier is the typed configuration of one challenge level. Values are loaded
// once at startup and validated; accounts are stamped from the tier they were
// created under and self-healed when the definition drifts.
type Tier struct {
	Name           string          `yaml:"name"`
	InitialBalance decimal.Decimal `yaml:"initial_balance"`
	ProfitTarget   decimal.Decimal `yaml:"profit_target"`
	MaxDrawdown    decimal.Decimal `yaml:"max_drawdown"`
	MaxDailyLoss   decimal.Decimal `yaml:"max_daily_loss"` // zero disables the daily rule
	MinTradingDays int             `yaml:"min_trading_days"`
	MaxLeverage    decimal.Decimal `yaml:"max_leverage"`
}

func (t Tier) DailyLossEnabled() bool {
	return t.MaxDailyLoss.GreaterThan(decimal.Zero)
}

type Registry struct {
	tiers map[string]Tier
}

func defaultTiers() []Tier {
	return []Tier{
		{
			Name:           "starter",
			InitialBalance: decimal.NewFromInt(10000),
			ProfitTarget:   decimal.NewFromInt(1000),
			MaxDrawdown:    decimal.NewFromInt(800),
			MaxDailyLoss:   decimal.Zero,
			MinTradingDays: 3,
			MaxLeverage:    decimal.NewFromInt(100),
		},
		{
			Name:           "advanced",
			InitialBalance: decimal.NewFromInt(50000),
			ProfitTarget:   decimal.NewFromInt(5000),
			MaxDrawdown:    decimal.NewFromInt(4000),
			MaxDailyLoss:   decimal.NewFromInt(2500),
			MinTradingDays: 5,
			MaxLeverage:    decimal.NewFromInt(100),
		},
	}
}

// Load builds the registry from a YAML file, or from the compiled-in defaults
// when path is empty.
func Load(path string) (*Registry, error) {
	tiers := defaultTiers()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var doc struct {
			Tiers []Tier `yaml:"tiers"`
		}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse tiers file: %w", err)
		}
		if len(doc.Tiers) == 0 {
			return nil, fmt.Errorf("tiers file %s defines no tiers", path)
		}
		tiers = doc.Tiers
	}
	reg := &Registry{tiers: make(map[string]Tier, len(tiers))}
	for _, t := range tiers {
		if err := validate(t); err != nil {
			return nil, err
		}
		if _, dup := reg.tiers[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tier %q", t.Name)
		}
		reg.tiers[t.Name] = t
	}
	return reg, nil
}

func validate(t Tier) error {
	if t.Name == "" {
		return fmt.Errorf("tier name is required")
	}
	if !t.InitialBalance.GreaterThan(decimal.Zero) {
		return fmt.Errorf("tier %s: initial_balance must be positive", t.Name)
	}
	if !t.ProfitTarget.GreaterThan(decimal.Zero) {
		return fmt.Errorf("tier %s: profit_target must be positive", t.Name)
	}
	if !t.MaxDrawdown.GreaterThan(decimal.Zero) {
		return fmt.Errorf("tier %s: max_drawdown must be positive", t.Name)
	}
	if t.MaxDrawdown.GreaterThanOrEqual(t.InitialBalance) {
		return fmt.Errorf("tier %s: max_drawdown must be below initial_balance", t.Name)
	}
	if t.MaxDailyLoss.IsNegative() {
		return fmt.Errorf("tier %s: max_daily_loss cannot be negative", t.Name)
	}
	if t.MinTradingDays < 0 {
		return fmt.Errorf("tier %s: min_trading_days cannot be negative", t.Name)
	}
	if !t.MaxLeverage.GreaterThan(decimal.Zero) {
		return fmt.Errorf("tier %s: max_leverage must be positive", t.Name)
	}
	return nil
}

func (r *Registry) Get(name string) (Tier, bool) {
	t, ok := r.tiers[name]
	return t, ok
}

// Default returns the tier accounts are created under when the caller does
// not name one.
func (r *Registry) Default() Tier {
	if t, ok := r.tiers["starter"]; ok {
		return t
	}
	names := r.Names()
	return r.tiers[names[0]]
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tiers))
	for name := range r.tiers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
