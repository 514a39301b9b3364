package model

import (
	"time"
)

// PrintType selects monochrome or colour printing.
type PrintType string

const (
	PrintBlackAndWhite PrintType = "blackAndWhite"
	PrintColor         PrintType = "color"
)

// Valid reports whether t is a known print type.
func (t PrintType) Valid() bool {
	return t == PrintBlackAndWhite || t == PrintColor
}

// PrintSide is single- or double-sided imposition.
type PrintSide string

const (
	SideSingle PrintSide = "single"
	SideDouble PrintSide = "double"
)

// Valid reports whether s is a known print side.
func (s PrintSide) Valid() bool {
	return s == SideSingle || s == SideDouble
}

// PaperSize is the sheet format requested for the job.
type PaperSize string

const (
	PaperA4     PaperSize = "a4"
	PaperA3     PaperSize = "a3"
	PaperLetter PaperSize = "letter"
	PaperLegal  PaperSize = "legal"
)

// Valid reports whether p is a known paper size.
func (p PaperSize) Valid() bool {
	switch p {
	case PaperA4, PaperA3, PaperLetter, PaperLegal:
		return true
	}
	return false
}

// OrderStatus describes where an order is in the shop's workflow. Only an
// administrator moves an order between statuses.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// AllPages is the selection keyword for printing every page.
const AllPages = "all"

// Order is a customer's print request. Field names follow the JSON layout of
// the persisted collection.
type Order struct {
	OrderID             string      `json:"orderId"`
	FullName            string      `json:"fullName"`
	PhoneNumber         string      `json:"phoneNumber"`
	PrintType           PrintType   `json:"printType"`
	Copies              int         `json:"copies"`
	PaperSize           PaperSize   `json:"paperSize"`
	PrintSide           PrintSide   `json:"printSide"`
	SelectedPages       string      `json:"selectedPages"`
	SpecialInstructions string      `json:"specialInstructions,omitempty"`
	Files               []FileRef   `json:"files"`
	OrderDate           time.Time   `json:"orderDate"`
	Status              OrderStatus `json:"status"`
	TotalCost           float64     `json:"totalCost"`
}

// HasFile reports whether key is one of the order's files.
func (o *Order) HasFile(key string) (FileRef, bool) {
	for _, f := range o.Files {
		if f.Key == key {
			return f, true
		}
	}
	return FileRef{}, false
}
