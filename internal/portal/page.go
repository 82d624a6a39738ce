package portal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/yosssi/gohtml"
)

// pageState is what we need to know about the page the browser is showing.
type pageState struct {
	// SignInForm is true while a password input is on the page.
	SignInForm bool
	// Alert is the first visible error/alert text, if any.
	Alert string
	// ExportControl is true when the export-to-Excel control is present.
	ExportControl bool
}

const alertSelector = `[role="alert"], .alert-danger, .alert-error, .error-message, .invalid-feedback, mat-error, .toast-error, .toast-message`

// inspectPage reads the outer HTML of the current page.
func inspectPage(html string) (pageState, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return pageState{}, fmt.Errorf("failed to parse page: %w", err)
	}

	st := pageState{
		SignInForm: doc.Find(`input[type="password"]`).Length() > 0,
	}

	doc.Find(alertSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return true
		}
		st.Alert = truncate(text, 120)
		return false
	})

	if doc.Find("app-excel-export-button").Length() > 0 {
		st.ExportControl = true
	} else {
		doc.Find("button").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if strings.Contains(strings.ToLower(s.Text()), "excel") {
				st.ExportControl = true
				return false
			}
			return true
		})
	}
	return st, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

var (
	scriptRe   = regexp.MustCompile(`(?s)<script[^>]*>.*?</script>`)
	styleRe    = regexp.MustCompile(`(?s)<style[^>]*>.*?</style>`)
	headRe     = regexp.MustCompile(`(?s)<head[^>]*>.*?</head>`)
	noscriptRe = regexp.MustCompile(`(?s)<noscript[^>]*>.*?</noscript>`)
	svgRe      = regexp.MustCompile(`(?s)<svg[^>]*>.*?</svg>`)
)

// cleanHTML strips scripts, styles and other noise and pretty prints the rest.
func cleanHTML(html string) string {
	html = strings.ReplaceAll(html, "<!---->", "")
	for _, re := range []*regexp.Regexp{scriptRe, styleRe, headRe, noscriptRe, svgRe} {
		html = re.ReplaceAllString(html, "")
	}
	return gohtml.Format(html)
}

// dumpPage writes a readable copy of html to the OS temp folder for
// debugging and returns its path.
func dumpPage(accountID, stage, html string) string {
	name := fmt.Sprintf("orderdash_%s_%s_%s.html", accountID, stage, time.Now().Format("150405"))
	path := filepath.Join(os.TempDir(), name)
	if err := os.WriteFile(path, []byte(cleanHTML(html)), 0644); err != nil {
		slog.Warn("Failed to write page dump", "path", path, "error", err)
		return ""
	}
	slog.Info("Page dumped for debugging", "path", path)
	return path
}
