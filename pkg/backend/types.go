package backend

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Tokens is the JWT pair issued by the backend on login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OrderItem struct {
	VariantID    int64           `json:"variant_id"`
	ProductName  string          `json:"product_name"`
	VariantLabel string          `json:"variant_label"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

type Order struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []OrderItem     `json:"items"`
}

type ProductImage struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

type Variant struct {
	ID    int64           `json:"id"`
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type Product struct {
	ID          int64          `json:"id"`
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Images      []ProductImage `json:"images"`
	Variants    []Variant      `json:"variants"`
}

// ProductQuery filters the product listing. Zero values are omitted.
type ProductQuery struct {
	Search   string
	Category string
	Ordering string
	Page     int
	PageSize int
}

type ProductPage struct {
	Count    int       `json:"count"`
	Next     *string   `json:"next"`
	Previous *string   `json:"previous"`
	Results  []Product `json:"results"`
}

type Category struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// LandingBlock is one CMS-authored section of the landing page. Payload is
// passed through untouched to the renderer.
type LandingBlock struct {
	ID       int64           `json:"id"`
	Type     string          `json:"type"`
	Position int             `json:"position"`
	IsActive bool            `json:"is_active"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type LandingBlockInput struct {
	ID       int64           `json:"id,omitempty"`
	Type     string          `json:"type"`
	Position int             `json:"position"`
	IsActive bool            `json:"is_active"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type Banner struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	LinkURL  string `json:"link_url"`
	ImageURL string `json:"image_url"`
	Position int    `json:"position"`
	IsActive bool   `json:"is_active"`
}

type BannerInput struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	LinkURL  string `json:"link_url,omitempty"`
	Position int    `json:"position"`
	IsActive bool   `json:"is_active"`
}

// Upload is a file forwarded to the backend as multipart form data.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address"`
	Notes   string `json:"notes,omitempty"`
}

type CheckoutItem struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

type CheckoutRequest struct {
	Customer Customer       `json:"customer"`
	Items    []CheckoutItem `json:"items"`
}

type CheckoutResult struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
}
