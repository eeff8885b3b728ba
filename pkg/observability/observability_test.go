package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type cloudWatchStub struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (c *cloudWatchStub) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.inputs = append(c.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, c.err
}

func TestMetrics_RecordCount(t *testing.T) {
	stub := &cloudWatchStub{err: errors.New("throttled")}
	m := NewMetrics("FamilyTree", stub, zap.NewNop())

	m.RecordCount(context.Background(), "TreeNodes", 4, map[string]string{"Stage": "prod", "Backend": "dynamodb"})

	require.Len(t, stub.inputs, 1)
	datum := stub.inputs[0].MetricData[0]
	assert.Equal(t, "FamilyTree", aws.ToString(stub.inputs[0].Namespace))
	assert.Equal(t, 4.0, aws.ToFloat64(datum.Value))
	require.Len(t, datum.Dimensions, 2)
	assert.Equal(t, "Backend", aws.ToString(datum.Dimensions[0].Name))
}

func TestMetrics_NilClient(t *testing.T) {
	m := NewMetrics("FamilyTree", nil, zap.NewNop())
	m.RecordLatency(context.Background(), "BuildFamilyTree", time.Millisecond)
}

func TestCollector(t *testing.T) {
	c := NewCollector("familytree")
	c.ObserveHTTP(http.MethodGet, "/api/v2/tree", 200, 10*time.Millisecond)
	c.ObserveHTTP(http.MethodGet, "/api/v2/tree", 404, time.Millisecond)
	Fanout{c, NewMetrics("x", nil, zap.NewNop())}.RecordCount(context.Background(), "TreeNodes", 3, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `familytree_http_requests_total{method="GET",route="/api/v2/tree",status="4xx"} 1`)
	assert.Contains(t, body, `familytree_events_total{name="TreeNodes"} 3`)

	// a second collector registers cleanly
	assert.NotNil(t, NewCollector("familytree"))
}

func TestTracer_Disabled(t *testing.T) {
	tr := NewTracer("familytree", false)
	called := false
	err := tr.TraceFunction(context.Background(), "build", func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, tr.Middleware(h))
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "unmatched", RouteLabel(""))
	assert.Equal(t, "/api/v2/persons/{personID}", RouteLabel("/api/v2/persons/{personID}"))
}
