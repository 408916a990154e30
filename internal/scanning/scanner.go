package scanning

// ItemData is one extracted line item. Price is the printed line total.
type ItemData struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// ReceiptData contains structured information extracted from a receipt image.
type ReceiptData struct {
	Items    []ItemData `json:"items"`
	Subtotal float64    `json:"subtotal"`
	Tax      float64    `json:"tax"`
	Tip      float64    `json:"tip"`
	Total    float64    `json:"total"`
	Currency string     `json:"currency"`
}

// Scanner defines the interface for receipt extraction.
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts line items and totals
	ScanReceipt(imageData []byte, contentType string) (*ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}
