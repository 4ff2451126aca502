package service

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceDBPoolGauges(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveDBPool(func() sql.DBStats {
		return sql.DBStats{OpenConnections: 4, InUse: 1, Idle: 3}
	})

	families, err := metrics.registry.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if metric.GetGauge() != nil {
				values[family.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 4.0, values["db_connections_open"])
	assert.Equal(t, 1.0, values["db_connections_in_use"])
	assert.Equal(t, 3.0, values["db_connections_idle"])
}

func TestMetricsServiceNotificationCounters(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordNotification(true)
	metrics.RecordNotification(false)
	metrics.RecordNotification(false)

	families, err := metrics.registry.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if metric.GetCounter() != nil {
				values[family.GetName()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, values["notification_emails_sent_total"])
	assert.Equal(t, 2.0, values["notification_emails_failed_total"])
}
