package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PDFRenderer imprime une page HTML en PDF avec un Chrome headless.
// Chaque rendu démarre son propre navigateur.
type PDFRenderer struct {
	execPath string
	timeout  time.Duration
}

// NewPDFRenderer : execPath vide laisse chromedp chercher Chrome dans le PATH
func NewPDFRenderer(execPath string, timeout time.Duration) *PDFRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PDFRenderer{execPath: execPath, timeout: timeout}
}

func (r *PDFRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.DisableGPU)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancel := context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate(HTMLDataURL(html)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("impression PDF: %w", err)
	}
	return pdf, nil
}

// HTMLDataURL emballe un document HTML dans une data URL navigable
func HTMLDataURL(html string) string {
	return "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(html))
}
