package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherNames(t *testing.T, families []string, name string) bool {
	t.Helper()
	for _, n := range families {
		if n == name {
			return true
		}
	}
	return false
}

// 运行时采集器在构建时即已注册
func TestNewRegistry_IncludesRuntimeCollectors(t *testing.T) {
	reg := NewRegistry()
	require.NotNil(t, reg)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.True(t, gatherNames(t, names, "go_goroutines"), "Go collector missing from registry")
}

func TestNewRegistry_InstancesAreIndependent(t *testing.T) {
	first := NewRegistry()
	second := NewRegistry()
	require.NotSame(t, first, second)

	// 仅在其中一个上注册业务指标
	resetBusinessMetrics()
	defer resetBusinessMetrics()
	RegisterBusinessMetrics(first)
	IncEntityOperation("client", "create")

	families, err := second.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		assert.NotEqual(t, "scrum_entity_operations_total", mf.GetName(),
			"business metrics leaked into an unrelated registry")
	}
}

// A registry built here accepts every metric family the server registers at
// startup, with no duplicate-registration panic.
func TestNewRegistry_AcceptsAllServerFamilies(t *testing.T) {
	resetBusinessMetrics()
	resetDBMetrics()
	defer resetBusinessMetrics()
	defer resetDBMetrics()

	reg := NewRegistry()
	assert.NotPanics(t, func() {
		RegisterDBMetrics(reg)
		RegisterBusinessMetrics(reg)
	})

	IncLoginTotal("success")
	dbQueriesTotal.WithLabelValues("query").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.True(t, gatherNames(t, names, "scrum_auth_logins_total"))
	assert.True(t, gatherNames(t, names, "scrum_db_queries_total"))
}
