package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/painthouse/src/processors"
	"github.com/username/painthouse/src/services"
)

func newSalesFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "sales"}
	cmd.Flags().String("from", "", "")
	cmd.Flags().String("to", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestSalesFilterFromFlags(t *testing.T) {
	filter, err := salesFilterFromFlags(newSalesFlags(t))
	require.NoError(t, err)
	assert.True(t, filter.IsZero())

	filter, err = salesFilterFromFlags(newSalesFlags(t, "--from", "2025-07-01", "--to", "2025-07-31"))
	require.NoError(t, err)
	require.NotNil(t, filter.From)
	require.NotNil(t, filter.To)
	assert.Equal(t, time.July, filter.From.Month)
	assert.Equal(t, 31, filter.To.Day)

	_, err = salesFilterFromFlags(newSalesFlags(t, "--from", "01-07-2025"))
	assert.ErrorContains(t, err, "--from")

	_, err = salesFilterFromFlags(newSalesFlags(t, "--from", "2025-08-01", "--to", "2025-07-01"))
	assert.Error(t, err)
}

func TestPrintReconcileReport(t *testing.T) {
	var buf bytes.Buffer
	printReconcileReport(&buf, &services.ReconcileReport{Consistent: true})
	assert.Contains(t, buf.String(), "matches")

	buf.Reset()
	printReconcileReport(&buf, &services.ReconcileReport{
		ItemsDrift: 1,
		Divergences: []processors.Divergence{{
			ItemType: "Paint", Description: "Gloss", Field: "inStock",
			Stored: decimal.NewFromInt(4), Rebuilt: decimal.NewFromInt(5),
		}},
	})
	assert.Contains(t, buf.String(), "1 items drifted")
	assert.Contains(t, buf.String(), "Paint / Gloss  inStock: stored 4, rebuilt 5")
}
