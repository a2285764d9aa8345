package pos

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/domain/order"
)

// ReceiptWidth is the column count of a rendered slip.
const ReceiptWidth = 40

// ReceiptLine is one sold line as printed on the slip.
type ReceiptLine struct {
	Name      string          `json:"name"`
	Size      catalog.Size    `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

// Receipt is a frozen snapshot of a completed sale.
type Receipt struct {
	OrderID       string              `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
	Lines         []ReceiptLine       `json:"lines"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod order.PaymentMethod `json:"paymentMethod"`
	CustomerName  string              `json:"customerName"`
	CustomerPhone string              `json:"customerPhone,omitempty"`
	IssuedAt      time.Time           `json:"issuedAt"`
}

// NewReceipt snapshots a placed order.
func NewReceipt(o *order.Order) *Receipt {
	lines := make([]ReceiptLine, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = ReceiptLine{
			Name:      l.Name,
			Size:      l.Size,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Total:     l.Total,
		}
	}
	return &Receipt{
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		Lines:         lines,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		CustomerName:  o.Customer.Name,
		CustomerPhone: o.Customer.Phone,
		IssuedAt:      o.CreatedAt,
	}
}

// Letterhead is printed at the top of every slip.
type Letterhead struct {
	Title    string
	Subtitle string
	Footer   []string
}

// Render writes the receipt as a fixed-width text slip.
func (r *Receipt) Render(w io.Writer, head Letterhead) error {
	var b strings.Builder
	rule := strings.Repeat("-", ReceiptWidth)

	center(&b, strings.ToUpper(head.Title))
	if head.Subtitle != "" {
		center(&b, head.Subtitle)
	}
	center(&b, r.IssuedAt.Format("2006-01-02 15:04:05"))
	center(&b, "#"+r.OrderNumber)
	b.WriteString(rule + "\n")

	for _, l := range r.Lines {
		columns(&b, fmt.Sprintf("%s (%s) x%d", l.Name, l.Size, l.Quantity), money(l.Total))
	}

	b.WriteString(rule + "\n")
	columns(&b, "TOTAL", money(r.Total))
	columns(&b, "Payment", strings.ToUpper(string(r.PaymentMethod)))
	columns(&b, "Customer", r.CustomerName)
	if r.CustomerPhone != "" {
		columns(&b, "Phone", r.CustomerPhone)
	}

	if len(head.Footer) > 0 {
		b.WriteString("\n")
		for _, line := range head.Footer {
			center(&b, line)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func money(d decimal.Decimal) string {
	return "Rs " + d.StringFixed(2)
}

func center(b *strings.Builder, s string) {
	s = truncate(s, ReceiptWidth)
	pad := (ReceiptWidth - utf8.RuneCountInString(s)) / 2
	b.WriteString(strings.Repeat(" ", pad) + s + "\n")
}

// columns writes left and right aligned to the slip edges, truncating left
// when both do not fit.
func columns(b *strings.Builder, left, right string) {
	room := ReceiptWidth - utf8.RuneCountInString(right) - 1
	left = truncate(left, room)
	gap := ReceiptWidth - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	b.WriteString(left + strings.Repeat(" ", gap) + right + "\n")
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
