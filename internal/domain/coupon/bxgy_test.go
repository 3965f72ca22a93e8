package coupon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/coupon-engine/internal/domain/cart"
)

func TestBxGy(t *testing.T) {
	tests := []struct {
		name            string
		detail          BxGy
		items           []cart.Item
		wantApplicable  bool
		wantRepetitions int
		wantDiscount    string
	}{
		{
			name: "single repetition",
			detail: BxGy{
				RepetitionLimit: 2,
				Buy:             []ProductQuantity{{ProductID: 1, Quantity: 2}},
				Get:             []ProductQuantity{{ProductID: 2, Quantity: 1}},
			},
			items:           []cart.Item{item(1, 3, "50"), item(2, 2, "30")},
			wantApplicable:  true,
			wantRepetitions: 1,
			wantDiscount:    "30.00",
		},
		{
			name: "capped by repetition limit",
			detail: BxGy{
				RepetitionLimit: 2,
				Buy:             []ProductQuantity{{ProductID: 1, Quantity: 1}},
				Get:             []ProductQuantity{{ProductID: 2, Quantity: 1}},
			},
			items:           []cart.Item{item(1, 6, "10"), item(2, 5, "4")},
			wantApplicable:  true,
			wantRepetitions: 2,
			wantDiscount:    "8.00",
		},
		{
			name: "scarcest buy product bounds repetitions",
			detail: BxGy{
				RepetitionLimit: 10,
				Buy:             []ProductQuantity{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 2}},
				Get:             []ProductQuantity{{ProductID: 3, Quantity: 1}},
			},
			items:           []cart.Item{item(1, 5, "10"), item(2, 4, "10"), item(3, 5, "7")},
			wantApplicable:  true,
			wantRepetitions: 2,
			wantDiscount:    "14.00",
		},
		{
			name: "free units limited by get units in cart",
			detail: BxGy{
				RepetitionLimit: 5,
				Buy:             []ProductQuantity{{ProductID: 1, Quantity: 1}},
				Get:             []ProductQuantity{{ProductID: 2, Quantity: 2}},
			},
			items:           []cart.Item{item(1, 5, "10"), item(2, 3, "6")},
			wantApplicable:  true,
			wantRepetitions: 5,
			wantDiscount:    "12.00",
		},
		{
			name: "cheapest get product is freed first",
			detail: BxGy{
				RepetitionLimit: 1,
				Buy:             []ProductQuantity{{ProductID: 1, Quantity: 1}},
				Get:             []ProductQuantity{{ProductID: 2, Quantity: 1}, {ProductID: 3, Quantity: 1}},
			},
			items:           []cart.Item{item(1, 1, "50"), item(2, 1, "30"), item(3, 1, "10")},
			wantApplicable:  true,
			wantRepetitions: 1,
			wantDiscount:    "10.00",
		},
		{
			name: "buy requirement not met",
			detail: BxGy{
				RepetitionLimit: 2,
				Buy:             []ProductQuantity{{ProductID: 1, Quantity: 3}},
				Get:             []ProductQuantity{{ProductID: 2, Quantity: 1}},
			},
			items:           []cart.Item{item(1, 2, "50"), item(2, 1, "30")},
			wantRepetitions: 0,
			wantDiscount:    "0",
		},
		{
			name: "get product absent",
			detail: BxGy{
				RepetitionLimit: 2,
				Buy:             []ProductQuantity{{ProductID: 1, Quantity: 1}},
				Get:             []ProductQuantity{{ProductID: 2, Quantity: 1}},
			},
			items:           []cart.Item{item(1, 2, "50")},
			wantRepetitions: 2,
			wantDiscount:    "0",
		},
		{
			name: "zero buy quantities yield no repetitions",
			detail: BxGy{
				RepetitionLimit: 3,
				Buy:             []ProductQuantity{{ProductID: 1, Quantity: 0}},
				Get:             []ProductQuantity{{ProductID: 2, Quantity: 1}},
			},
			items:           []cart.Item{item(2, 2, "5")},
			wantApplicable:  true,
			wantRepetitions: 0,
			wantDiscount:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cart.MustNew(tt.items...)

			assert.Equal(t, tt.wantApplicable, tt.detail.IsApplicable(c))
			assert.Equal(t, tt.wantRepetitions, tt.detail.RepetitionCount(c))
			got := tt.detail.Discount(c)
			assert.True(t, d(tt.wantDiscount).Equal(got), "expected %s, got %s", tt.wantDiscount, got)
		})
	}
}

func TestBxGy_Apply(t *testing.T) {
	detail := &BxGy{
		RepetitionLimit: 2,
		Buy:             []ProductQuantity{{ProductID: 1, Quantity: 2}},
		Get:             []ProductQuantity{{ProductID: 2, Quantity: 1}},
	}
	c := cart.MustNew(item(1, 3, "50"), item(2, 2, "30"))

	got := detail.Apply(c)

	require.Len(t, got.Items, 2, "no lines are added for free units")
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.True(t, got.Items[0].TotalDiscount.IsZero())
	assert.Equal(t, 2, got.Items[1].Quantity)
	assert.True(t, d("30").Equal(got.Items[1].TotalDiscount))
	assert.True(t, d("210").Equal(got.TotalPrice))
	assert.True(t, d("30").Equal(got.TotalDiscount))
	assert.True(t, d("180").Equal(got.FinalPrice))
}

func TestBxGy_ApplyNotApplicable(t *testing.T) {
	detail := &BxGy{
		RepetitionLimit: 1,
		Buy:             []ProductQuantity{{ProductID: 1, Quantity: 2}},
		Get:             []ProductQuantity{{ProductID: 2, Quantity: 1}},
	}
	c := cart.MustNew(item(1, 1, "50"), item(2, 1, "30"))

	got := detail.Apply(c)

	assert.True(t, got.TotalDiscount.IsZero())
	assert.True(t, got.TotalPrice.Equal(got.FinalPrice))
}
