package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/PrintDrop/internal/model"
)

func TestCalculate(t *testing.T) {
	cases := []struct {
		name   string
		in     Input
		sheets int
		total  float64
	}{
		{"mono single", Input{model.PrintBlackAndWhite, model.SideSingle, 1, 10}, 10, 15.0},
		{"color double", Input{model.PrintColor, model.SideDouble, 1, 10}, 5, 65.0},
		{"mono double odd pages", Input{model.PrintBlackAndWhite, model.SideDouble, 2, 7}, 4, 12.8},
		{"color single copies", Input{model.PrintColor, model.SideSingle, 3, 4}, 4, 96.0},
		{"no pages yet", Input{model.PrintColor, model.SideDouble, 1, 0}, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Calculate(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.sheets, q.BilledSheets)
			assert.InDelta(t, tc.total, q.Total, 1e-9)
		})
	}
}

func TestCalculateRejectsBadInput(t *testing.T) {
	_, err := Calculate(Input{PrintType: "premium", PrintSide: model.SideSingle, Copies: 1, Pages: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Calculate(Input{PrintType: model.PrintColor, PrintSide: "triple", Copies: 1, Pages: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Calculate(Input{PrintType: model.PrintColor, PrintSide: model.SideSingle, Copies: 0, Pages: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRateTable(t *testing.T) {
	r, err := Rate(model.PrintBlackAndWhite, model.SideDouble)
	require.NoError(t, err)
	assert.Equal(t, 1.6, r)

	r, err = Rate(model.PrintColor, model.SideSingle)
	require.NoError(t, err)
	assert.Equal(t, 8.0, r)
}
