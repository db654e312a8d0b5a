package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordIngest(t *testing.T) {
	okBefore := testutil.ToFloat64(IngestTotal.WithLabelValues("test", "success"))
	errBefore := testutil.ToFloat64(IngestTotal.WithLabelValues("test", "error"))
	upBefore := testutil.ToFloat64(ArticlesUpserted)

	RecordIngest("test", 3, nil)
	RecordIngest("test", 5, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(IngestTotal.WithLabelValues("test", "success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(IngestTotal.WithLabelValues("test", "error")))
	assert.Equal(t, upBefore+3, testutil.ToFloat64(ArticlesUpserted))
}

func TestRecordSweep(t *testing.T) {
	okBefore := testutil.ToFloat64(SweepSources.WithLabelValues("success"))
	errBefore := testutil.ToFloat64(SweepSources.WithLabelValues("error"))

	RecordSweep(1.5, 4, 1)

	assert.Equal(t, okBefore+4, testutil.ToFloat64(SweepSources.WithLabelValues("success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(SweepSources.WithLabelValues("error")))
}
