// Package pricing computes order cost from print attributes and page count.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/dharsanguruparan/PrintDrop/internal/model"
)

// ErrInvalidInput is returned for unknown print attributes or non-positive
// copies.
var ErrInvalidInput = errors.New("invalid pricing input")

type rateKey struct {
	printType model.PrintType
	side      model.PrintSide
}

// Per billed sheet, in currency units.
var rates = map[rateKey]float64{
	{model.PrintBlackAndWhite, model.SideSingle}: 1.5,
	{model.PrintBlackAndWhite, model.SideDouble}: 1.6,
	{model.PrintColor, model.SideSingle}:         8,
	{model.PrintColor, model.SideDouble}:         13,
}

// Rate returns the per-sheet rate for a print type and side.
func Rate(printType model.PrintType, side model.PrintSide) (float64, error) {
	r, ok := rates[rateKey{printType, side}]
	if !ok {
		return 0, fmt.Errorf("%w: no rate for %q/%q", ErrInvalidInput, printType, side)
	}
	return r, nil
}

// Input describes a job to price. Pages is the effective page count after
// the selection has been applied.
type Input struct {
	PrintType model.PrintType
	PrintSide model.PrintSide
	Copies    int
	Pages     int
}

// Quote is a priced job.
type Quote struct {
	Pages        int     `json:"pages"`
	BilledSheets int     `json:"billedSheets"`
	Rate         float64 `json:"rate"`
	Copies       int     `json:"copies"`
	Total        float64 `json:"total"`
}

// Calculate prices in. Double-sided jobs bill ceil(pages/2) sheets. Zero
// pages price to zero.
func Calculate(in Input) (Quote, error) {
	rate, err := Rate(in.PrintType, in.PrintSide)
	if err != nil {
		return Quote{}, err
	}
	if in.Copies < 1 {
		return Quote{}, fmt.Errorf("%w: copies must be at least 1", ErrInvalidInput)
	}
	if in.Pages < 0 {
		return Quote{}, fmt.Errorf("%w: negative page count", ErrInvalidInput)
	}
	sheets := in.Pages
	if in.PrintSide == model.SideDouble {
		sheets = (in.Pages + 1) / 2
	}
	total := float64(sheets) * rate * float64(in.Copies)
	return Quote{
		Pages:        in.Pages,
		BilledSheets: sheets,
		Rate:         rate,
		Copies:       in.Copies,
		Total:        math.Round(total*100) / 100,
	}, nil
}
