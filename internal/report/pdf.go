package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// DefaultExportTimeout bounds a single PDF export
const DefaultExportTimeout = 30 * time.Second

// ExportError represents a failed PDF export
type ExportError struct {
	Cause error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("pdf export failed: %v", e.Cause)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// ExportPDF prints an HTML page to PDF with a headless browser.
// Requires Chrome/Chromium to be installed on the system.
func ExportPDF(ctx context.Context, htmlDoc string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultExportTimeout
	}
	log.Printf("[REPORT] Starting headless browser for PDF export (%d bytes)", len(htmlDoc))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	dataURL := "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(false).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		return nil, &ExportError{Cause: err}
	}

	log.Printf("[REPORT] Exported PDF: %d bytes", len(pdf))
	return pdf, nil
}
