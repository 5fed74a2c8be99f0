package tier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)

	starter, ok := reg.Get("starter")
	require.True(t, ok)
	assert.True(t, starter.InitialBalance.Equal(decimal.NewFromInt(10000)))
	assert.True(t, starter.MaxDrawdown.Equal(decimal.NewFromInt(800)))
	assert.False(t, starter.DailyLossEnabled())
	assert.Equal(t, 3, starter.MinTradingDays)

	advanced, ok := reg.Get("advanced")
	require.True(t, ok)
	assert.True(t, advanced.DailyLossEnabled())

	assert.Equal(t, "starter", reg.Default().Name)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	doc := `tiers:
  - name: micro
    initial_balance: 5000
    profit_target: 500
    max_drawdown: 400
    max_daily_loss: 250
    min_trading_days: 2
    max_leverage: 50
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	reg, err := Load(path)
	require.NoError(t, err)

	micro, ok := reg.Get("micro")
	require.True(t, ok)
	assert.True(t, micro.MaxLeverage.Equal(decimal.NewFromInt(50)))
	assert.True(t, micro.DailyLossEnabled())

	_, ok = reg.Get("starter")
	assert.False(t, ok, "file replaces the defaults")
}

func TestLoadRejectsInvalidTier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	doc := `tiers:
  - name: broken
    initial_balance: 1000
    profit_target: 100
    max_drawdown: 1000
    max_leverage: 100
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "max_drawdown must be below initial_balance")
}

func TestLoadRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	doc := `tiers:
  - name: twin
    initial_balance: 1000
    profit_target: 100
    max_drawdown: 80
    max_leverage: 100
  - name: twin
    initial_balance: 2000
    profit_target: 200
    max_drawdown: 160
    max_leverage: 100
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "duplicate tier")
}
