package freshness

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"github.com/healthdash/backend/pkg/httputil"
)

// ErrSectionNotFound is returned when the hashed page section is missing
var ErrSectionNotFound = errors.New("page section not found")

// ETagProbe uses the ETag header of a HEAD response
type ETagProbe struct {
	client *httputil.Client
}

// NewETagProbe creates a new ETagProbe
func NewETagProbe(client *httputil.Client) *ETagProbe {
	return &ETagProbe{client: client}
}

// Token returns the ETag of url, or "" when the server sends none
func (p *ETagProbe) Token(ctx context.Context, url string) (string, error) {
	resp, err := p.client.Head(ctx, url)
	if err != nil {
		return "", fmt.Errorf("HEAD %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &httputil.StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	return resp.Header.Get("ETag"), nil
}

// ContentHashProbe hashes one section of a page for sources that send no
// usable ETag
type ContentHashProbe struct {
	client   *httputil.Client
	selector string
}

// NewContentHashProbe creates a probe hashing the first element matching
// selector
func NewContentHashProbe(client *httputil.Client, selector string) *ContentHashProbe {
	return &ContentHashProbe{client: client, selector: selector}
}

// Token returns the hex MD5 of the selected section's outer HTML
func (p *ContentHashProbe) Token(ctx context.Context, url string) (string, error) {
	resp, err := p.client.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	return SectionHash(doc, p.selector)
}

// SectionHash returns the hex MD5 of the first element matching selector
func SectionHash(doc *goquery.Document, selector string) (string, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrSectionNotFound, selector)
	}

	html, err := goquery.OuterHtml(sel)
	if err != nil {
		return "", fmt.Errorf("failed to render section: %w", err)
	}

	sum := md5.Sum([]byte(html))
	return hex.EncodeToString(sum[:]), nil
}
