package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

func (c *Client) Login(ctx context.Context, creds Credentials) (Tokens, error) {
	var tokens Tokens
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return tokens, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required")
	}
	cl, err := jsonCall(http.MethodPost, "/api/auth/login/", "", creds)
	if err != nil {
		return tokens, err
	}
	if err := c.do(ctx, cl, &tokens); err != nil {
		return Tokens{}, err
	}
	if tokens.Access == "" {
		return Tokens{}, pkgerrors.New(pkgerrors.CodeDependency, "backend returned no access token")
	}
	return tokens, nil
}

func (c *Client) GetOrder(ctx context.Context, reference string) (Order, error) {
	var order Order
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return order, pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
	}
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/orders/" + url.PathEscape(ref) + "/"}, &order)
	return order, err
}

func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (ProductPage, error) {
	var page ProductPage
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/products/", query: q.Values()}, &page)
	return page, err
}

// Values encodes the non-zero filters as query parameters.
func (q ProductQuery) Values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if s := strings.TrimSpace(q.Category); s != "" {
		v.Set("category", s)
	}
	if s := strings.TrimSpace(q.Ordering); s != "" {
		v.Set("ordering", s)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

func (c *Client) GetProduct(ctx context.Context, slug string) (Product, error) {
	var product Product
	s := strings.TrimSpace(slug)
	if s == "" {
		return product, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/products/" + url.PathEscape(s) + "/"}, &product)
	return product, err
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/categories/"}, &categories)
	return categories, err
}

func (c *Client) LandingBlocks(ctx context.Context) ([]LandingBlock, error) {
	var blocks []LandingBlock
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/cms/landing-blocks/"}, &blocks)
	return blocks, err
}

func (c *Client) UpsertLandingBlock(ctx context.Context, token string, input LandingBlockInput) (LandingBlock, error) {
	var block LandingBlock
	method, path := http.MethodPost, "/api/cms/landing-blocks/"
	if input.ID > 0 {
		method, path = http.MethodPut, fmt.Sprintf("/api/cms/landing-blocks/%d/", input.ID)
	}
	cl, err := jsonCall(method, path, token, input)
	if err != nil {
		return block, err
	}
	err = c.do(ctx, cl, &block)
	return block, err
}

func (c *Client) DeleteLandingBlock(ctx context.Context, token string, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/api/cms/landing-blocks/%d/", id), token: token}, nil)
}

func (c *Client) ListBanners(ctx context.Context, token string) ([]Banner, error) {
	var banners []Banner
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/cms/banners/", token: token}, &banners)
	return banners, err
}

func (c *Client) CreateBanner(ctx context.Context, token string, input BannerInput) (Banner, error) {
	var banner Banner
	cl, err := jsonCall(http.MethodPost, "/api/cms/banners/", token, input)
	if err != nil {
		return banner, err
	}
	err = c.do(ctx, cl, &banner)
	return banner, err
}

func (c *Client) DeleteBanner(ctx context.Context, token string, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/api/cms/banners/%d/", id), token: token}, nil)
}

func (c *Client) UploadBannerImage(ctx context.Context, token string, bannerID int64, upload Upload) (Banner, error) {
	var banner Banner
	cl, err := multipartCall(http.MethodPost, fmt.Sprintf("/api/cms/banners/%d/image/", bannerID), token, upload)
	if err != nil {
		return banner, err
	}
	err = c.do(ctx, cl, &banner)
	return banner, err
}

func (c *Client) DeleteBannerImage(ctx context.Context, token string, bannerID int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/api/cms/banners/%d/image/", bannerID), token: token}, nil)
}

func (c *Client) UploadProductImage(ctx context.Context, token string, productID int64, upload Upload) (ProductImage, error) {
	var image ProductImage
	cl, err := multipartCall(http.MethodPost, fmt.Sprintf("/api/products/%d/images/", productID), token, upload)
	if err != nil {
		return image, err
	}
	err = c.do(ctx, cl, &image)
	return image, err
}

func (c *Client) DeleteProductImage(ctx context.Context, token string, productID, imageID int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/api/products/%d/images/%d/", productID, imageID), token: token}, nil)
}

// SubmitCheckout places an order. The idempotency key lets the backend
// collapse retried submissions into one order.
func (c *Client) SubmitCheckout(ctx context.Context, idempotencyKey string, req CheckoutRequest) (CheckoutResult, error) {
	var result CheckoutResult
	if strings.TrimSpace(idempotencyKey) == "" {
		return result, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	cl, err := jsonCall(http.MethodPost, "/api/checkout/", "", req)
	if err != nil {
		return result, err
	}
	cl.headers = map[string]string{HeaderIdempotencyKey: idempotencyKey}
	err = c.do(ctx, cl, &result)
	return result, err
}

func multipartCall(method, path, token string, upload Upload) (call, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, upload.FileName))
	if upload.ContentType != "" {
		header.Set("Content-Type", upload.ContentType)
	}
	part, err := w.CreatePart(header)
	if err != nil {
		return call{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}
	if _, err := part.Write(upload.Data); err != nil {
		return call{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write upload form")
	}
	if err := w.Close(); err != nil {
		return call{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close upload form")
	}
	return call{method: method, path: path, token: token, body: &buf, ctype: w.FormDataContentType()}, nil
}
