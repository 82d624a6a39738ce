package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleOrders() []Order {
	mk := func(day int, origin, store, status, shipment, product, amount string) Order {
		return Order{
			Date:     Date{2024, time.May, day},
			Origin:   origin,
			Store:    store,
			Status:   status,
			Shipment: shipment,
			Product:  product,
			Customer: Unspecified,
			Amount:   decimal.RequireFromString(amount),
		}
	}
	return []Order{
		mk(1, "Honduras", "Centro", "Entregado", "Entregado", "Reloj", "1250"),
		mk(2, "Honduras", "Norte", "Pendiente", "En ruta", "Gorra", "300"),
		mk(2, "Honduras", Unspecified, "Cancelado", "Devuelto", "Gorra", "0"),
		mk(1, "El Salvador", "Sur", "Entregado", "Entregado", "Reloj", "1250"),
		mk(3, "El Salvador", "Sur", "Entregado", Unspecified, "Bolso", "45.5"),
		mk(5, "El Salvador", "Sur", "Pendiente", "En ruta", "Bolso", "10"),
	}
}

func TestFilterEmptySelectionIsNoRestriction(t *testing.T) {
	orders := sampleOrders()

	require.Equal(t, orders, NewFilter().Apply(orders))

	f := NewFilter()
	f.Select(FieldStore) // empty selection
	f.From = Date{2024, time.May, 2}
	onlyDate := Filter{From: Date{2024, time.May, 2}}
	require.Equal(t, onlyDate.Apply(orders), f.Apply(orders))
}

func TestFilterSoundAndComplete(t *testing.T) {
	orders := sampleOrders()
	f := NewFilter()
	f.Select(FieldStatus, "Entregado", "Pendiente")
	f.Select(FieldOrigin, "El Salvador")
	f.To = Date{2024, time.May, 3}

	got := f.Apply(orders)
	require.Len(t, got, 2)

	// soundness
	for _, o := range got {
		require.True(t, f.Selected[FieldStatus][o.Status])
		require.Equal(t, "El Salvador", o.Origin)
		require.False(t, o.Date.After(f.To))
	}
	// completeness
	n := 0
	for _, o := range orders {
		if (o.Status == "Entregado" || o.Status == "Pendiente") && o.Origin == "El Salvador" && !o.Date.After(f.To) {
			n++
		}
	}
	require.Equal(t, n, len(got))
}

func TestFilterToggle(t *testing.T) {
	f := NewFilter()
	require.False(t, f.Active())

	f.Toggle(FieldProduct, "Reloj")
	require.True(t, f.Active())
	require.True(t, f.IsSelected(FieldProduct, "Reloj"))
	require.Len(t, f.Apply(sampleOrders()), 2)

	f.Toggle(FieldProduct, "Reloj")
	require.False(t, f.Active())
	require.Len(t, f.Apply(sampleOrders()), 6)

	var zero Filter
	zero.Toggle(FieldStore, Unspecified)
	require.Len(t, zero.Apply(sampleOrders()), 1)
}

func TestDomains(t *testing.T) {
	d := Domains(sampleOrders())
	require.Equal(t, Date{2024, time.May, 1}, d.MinDate)
	require.Equal(t, Date{2024, time.May, 5}, d.MaxDate)
	require.Equal(t, []string{"El Salvador", "Honduras"}, d.Values[FieldOrigin])
	require.Equal(t, []string{Unspecified, "Centro", "Norte", "Sur"}, d.Values[FieldStore])
	require.Equal(t, []string{Unspecified, "Devuelto", "En ruta", "Entregado"}, d.Values[FieldShipment])

	empty := Domains(nil)
	require.True(t, empty.MinDate.IsZero())
	require.Empty(t, empty.Values[FieldStore])
}
