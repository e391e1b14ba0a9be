package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paidData struct {
	OrderNumber string `json:"order_number"`
	Amount      int64  `json:"amount"`
}

func TestNewEvent_PopulatesEnvelope(t *testing.T) {
	ev, err := NewEvent("storefront.order.paid", "PO10000001", "order", "storefront", paidData{
		OrderNumber: "PO10000001",
		Amount:      21500,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "storefront.order.paid", ev.EventType)
	assert.Equal(t, "PO10000001", ev.AggregateID)
	assert.Equal(t, "order", ev.AggregateType)
	assert.Equal(t, "storefront", ev.Source)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestEvent_DataRoundTrip(t *testing.T) {
	ev, err := NewEvent("storefront.order.paid", "PO10000002", "order", "storefront", paidData{
		OrderNumber: "PO10000002",
		Amount:      399,
	})
	require.NoError(t, err)

	var got paidData
	require.NoError(t, ev.UnmarshalData(&got))
	assert.Equal(t, int64(399), got.Amount)
}

func TestEvent_WithCorrelationID(t *testing.T) {
	ev, err := NewEvent("storefront.cart.updated", "sess-1", "cart", "storefront", nil)
	require.NoError(t, err)
	assert.Equal(t, "corr-9", ev.WithCorrelationID("corr-9").CorrelationID)
}
