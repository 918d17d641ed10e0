package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TFMV/flightline/config"
)

func TestBucketFor(t *testing.T) {
	buckets := config.DefaultBuckets()
	cases := []struct {
		delay float64
		want  string
	}{
		{-20, "on_time"},
		{0, "on_time"},
		{0.5, "minor"},
		{12, "minor"},
		{15, "minor"},
		{15.5, "moderate"},
		{60, "moderate"},
		{61, "severe"},
		{400, "severe"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, bucketFor(tc.delay, buckets), "delay %v", tc.delay)
	}
}

func TestDerive(t *testing.T) {
	cols := &cleanColumns{
		origin:   []string{"JFK", "ORD", "JFK"},
		dest:     []string{"LAX", "DEN", "LAX"},
		arrDelay: []float64{12, 75, -3},
	}
	d := derive(cols, config.DefaultBuckets())

	assert.Equal(t, []string{"JFK-LAX", "ORD-DEN", "JFK-LAX"}, d.routes)
	assert.Equal(t, []string{"minor", "severe", "on_time"}, d.buckets)
}

func TestRouteInterner(t *testing.T) {
	interner := newRouteInterner(8)
	a := interner.key("JFK", "LAX")
	b := interner.key("JFK", "LAX")
	assert.Equal(t, a, b)
	assert.Equal(t, "JFK-LAX", a)
}
