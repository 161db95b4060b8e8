package invoice

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"

	"toyadmin/internal/models"
)

var ErrNoItems = errors.New("order has no line items")

// Company is the letterhead printed on every invoice.
type Company struct {
	Name        string
	Email       string
	PhoneNumber string
	Address     string
}

var DefaultCompany = Company{
	Name:        "Toy House",
	Email:       "support@toyhouse.com.bd",
	PhoneNumber: "01700000000",
	Address:     "Toy House, Level-1, A1, 37C",
}

// ItemsTotal sums unit price times quantity over the line items.
func ItemsTotal(o models.Order) float64 {
	var total float64
	for _, item := range o.Items {
		total += item.SellingPrice * float64(item.Quantity)
	}
	return total
}

// GrandTotal is the items total plus the flat delivery fee.
func GrandTotal(o models.Order) float64 {
	return ItemsTotal(o) + o.DeliveryOption.Fee()
}

// Render produces the printable invoice for one order snapshot.
func Render(o models.Order, company Company) ([]byte, error) {
	if len(o.Items) == 0 {
		return nil, ErrNoItems
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Order Invoice", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Order ID: %d", o.OrderID), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	writeParty(pdf, 14, []string{
		"Email: " + o.Email,
		"Customer Name: " + o.Name,
		"Phone: " + o.PhoneNumber,
		"Address: " + orNA(o.Address),
	})
	writeParty(pdf, 130, []string{
		"Company Name: " + company.Name,
		"Email: " + company.Email,
		"Phone: " + company.PhoneNumber,
		"Address: " + company.Address,
	})
	pdf.Ln(12)

	writeItemsTable(pdf, o.Items)

	fee := o.DeliveryOption.Fee()
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 11)
	writeTotalRow(pdf, "Total Price:", ItemsTotal(o))
	writeTotalRow(pdf, "Delivery Fee:", fee)
	writeTotalRow(pdf, "Grand Total:", GrandTotal(o))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

func writeParty(pdf *fpdf.Fpdf, x float64, lines []string) {
	y := pdf.GetY()
	for i, line := range lines {
		pdf.Text(x, y+float64(i*8), line)
	}
}

func writeItemsTable(pdf *fpdf.Fpdf, items []models.OrderItem) {
	widths := []float64{10, 52, 30, 25, 15, 25, 25}
	headers := []string{"#", "Product Name", "SKU", "Color", "Qty", "Price", "Total"}

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetFillColor(117, 117, 117)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for i, item := range items {
		fill := i%2 == 1
		pdf.SetFillColor(245, 245, 245)
		lineTotal := item.SellingPrice * float64(item.Quantity)
		cells := []string{
			strconv.Itoa(i + 1),
			item.ProductName,
			item.SKU,
			orNA(item.ColorName),
			strconv.Itoa(item.Quantity),
			fmt.Sprintf("%.2f BDT", item.SellingPrice),
			fmt.Sprintf("%.2f BDT", lineTotal),
		}
		for j, c := range cells {
			pdf.CellFormat(widths[j], 8, c, "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

func writeTotalRow(pdf *fpdf.Fpdf, label string, amount float64) {
	pdf.CellFormat(140, 8, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(42, 8, fmt.Sprintf("%.2f BDT", amount), "", 1, "R", false, 0, "")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
