package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct_Validation(t *testing.T) {
	tests := []struct {
		name  string
		id    ProductID
		pname string
		price Money
		field string
	}{
		{name: "empty id", id: "", pname: "Soda", price: 1201, field: "product.id"},
		{name: "empty name", id: "p1", pname: "", price: 1201, field: "product.name"},
		{name: "blank name", id: "p1", pname: "   ", price: 1201, field: "product.name"},
		{name: "negative price", id: "p1", pname: "Rice", price: -1, field: "product.price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProduct(tt.id, tt.pname, tt.price)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	p, err := NewProduct("p1", "Soda", 0)
	require.NoError(t, err)
	assert.Equal(t, Money(0), p.Price)
}

func TestProduct_EqualityIsByID(t *testing.T) {
	a := Product{ID: "a", Name: "Soda", Price: 100}
	b := Product{ID: "b", Name: "Soda", Price: 100}
	c := Product{ID: "a", Name: "Cola", Price: 250}

	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(c))

	snapshot, err := NewCartSnapshot(LineItem{Product: a, Quantity: 1}, LineItem{Product: b, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Len())
}

func TestNewCartSnapshot_RejectsNonPositiveQuantity(t *testing.T) {
	p := Product{ID: "a", Name: "Soda", Price: 100}
	for _, qty := range []int{0, -3} {
		_, err := NewCartSnapshot(LineItem{Product: p, Quantity: qty})
		assert.True(t, IsValidation(err), "qty=%d", qty)
	}
}

func TestNewCartSnapshot_MergesDuplicateProducts(t *testing.T) {
	p := Product{ID: "a", Name: "Soda", Price: 100}
	snapshot, err := NewCartSnapshot(LineItem{Product: p, Quantity: 2}, LineItem{Product: p, Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, 1, snapshot.Len())
	assert.Equal(t, 5, snapshot.Quantity("a"))
	assert.Equal(t, Money(500), snapshot.Total())
}

func TestCartSnapshot_Total(t *testing.T) {
	snapshot := sampleSnapshot(t)
	assert.Equal(t, Money(1600), snapshot.Total())
	assert.Equal(t, "$16.00", snapshot.Total().String())
	assert.Equal(t, []ProductID{"gadget", "widget"}, snapshot.ProductIDs())
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "$0.00", Money(0).String())
	assert.Equal(t, "$12.01", Money(1201).String())
	assert.Equal(t, "-$0.05", Money(-5).String())
}

func TestNewCartSnapshot_RejectsMalformedProducts(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		field   string
	}{
		{name: "empty id", product: Product{Name: "Widget", Price: 300}, field: "product.id"},
		{name: "empty name", product: Product{ID: "widget", Name: "", Price: 300}, field: "product.name"},
		{name: "negative price", product: Product{ID: "widget", Name: "Widget", Price: -300}, field: "product.price"},
		{name: "empty name and negative price", product: Product{ID: "widget", Name: " ", Price: -300}, field: "product.name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCartSnapshot(LineItem{Product: tt.product, Quantity: 2})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
