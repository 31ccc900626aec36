package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeskDrills_AllPass(t *testing.T) {
	d := NewDeskDrills(nil)
	d.RunTest(context.Background())

	results := d.GetResults()
	require.Len(t, results, 5)
	for _, r := range results {
		assert.True(t, r.Passed, "%s: %s (got %s)", r.ScenarioName, r.Reason, r.Actual)
	}
	assert.Equal(t, "1 and -1", results[4].Actual)
}

func TestDeskDrills_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDeskDrills(nil)
	d.RunTest(ctx)
	assert.Empty(t, d.GetResults())
}
