package jobs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger/fiscalyears"
)

func TestOpenYearCodesSkipsClosedYears(t *testing.T) {
	codes := openYearCodes([]fiscalyears.FiscalYear{
		{Code: "2022", Status: fiscalyears.YearStatusClosed},
		{Code: "2023", Status: fiscalyears.YearStatusClosed},
		{Code: "2024", Status: fiscalyears.YearStatusOpen},
		{Code: "2025", Status: fiscalyears.YearStatusOpen},
	})
	require.Equal(t, []string{"2024", "2025"}, codes)
}

func TestOpenYearCodesEmptyWhenAllClosed(t *testing.T) {
	codes := openYearCodes([]fiscalyears.FiscalYear{
		{Code: "2022", Status: fiscalyears.YearStatusClosed},
	})
	require.Empty(t, codes)
}
