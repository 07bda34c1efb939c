package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHelpersRecordAfterInit(t *testing.T) {
	Init(nil, nil)
	Init(nil, nil)

	before := testutil.ToFloat64(exportTotal.WithLabelValues("xlsx", ResultSuccess))
	ObserveExport("xlsx", "", time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(exportTotal.WithLabelValues("xlsx", ResultSuccess)))

	rows := testutil.ToFloat64(fetchRows.WithLabelValues("postgres"))
	ObserveFetch("postgres", ResultSuccess, 25, time.Millisecond)
	ObserveFetch("postgres", ResultError, 0, time.Millisecond)
	require.Equal(t, rows+25, testutil.ToFloat64(fetchRows.WithLabelValues("postgres")))

	nulls := testutil.ToFloat64(nullFields.WithLabelValues("timestamp"))
	AddNullFields("timestamp", 0)
	AddNullFields("timestamp", 2)
	require.Equal(t, nulls+2, testutil.ToFloat64(nullFields.WithLabelValues("timestamp")))

	IncReport("")
	require.Equal(t, 1.0, testutil.ToFloat64(reportTotal.WithLabelValues("unknown")))
}
