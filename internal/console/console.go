package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/IliaW/util-cli/internal/model"
	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/rodaine/table"
)

const (
	separatorWidth = 60
	maxFailedShown = 10
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
)

// IsTerminal reports whether f is attached to an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Reporter prints the human-readable side of a crawl. The spinner is only used when
// the output is a terminal; otherwise progress is printed as plain lines.
type Reporter struct {
	out  io.Writer
	spin *spinner.Spinner
}

func NewReporter(out io.Writer, interactive bool) *Reporter {
	r := &Reporter{out: out}
	if interactive {
		r.spin = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(out))
	}
	return r
}

func (r *Reporter) Started(s model.CrawlSettings) {
	depth := "unlimited"
	if s.MaxDepth > 0 {
		depth = fmt.Sprint(s.MaxDepth)
	}
	fmt.Fprintln(r.out, titleStyle.Render("Starting crawl of "+s.SeedURL))
	fmt.Fprintf(r.out, "Max depth: %s\n", depth)
	fmt.Fprintf(r.out, "Stay in domain: %t\n", s.StayInDomain)
	fmt.Fprintf(r.out, "Max concurrent requests: %d\n", s.MaxConcurrent)
	fmt.Fprintln(r.out, strings.Repeat("-", separatorWidth))
	if r.spin != nil {
		r.spin.Suffix = " Crawling..."
		r.spin.Start()
	}
}

func (r *Reporter) Recorded(model.PageResult) {}

func (r *Reporter) Progress(visited int) {
	msg := fmt.Sprintf("Crawling... %d urls visited", visited)
	if r.spin != nil {
		r.spin.Lock()
		r.spin.Suffix = " " + msg
		r.spin.Unlock()
		return
	}
	fmt.Fprintln(r.out, msg)
}

// Stop clears the spinner line. Safe to call more than once.
func (r *Reporter) Stop() {
	if r.spin != nil {
		r.spin.Stop()
	}
}

func (r *Reporter) SchemeDefaulted(url string) {
	Warn(r.out, "No scheme provided, assuming: "+url)
}

func (r *Reporter) Interrupted(s model.CrawlSummary) {
	r.Stop()
	fmt.Fprintln(r.out)
	Warn(r.out, "Crawl interrupted by user")
	r.printSummary(s)
}

func (r *Reporter) Summary(s model.CrawlSummary) {
	r.Stop()
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, titleStyle.Render("Crawl completed!"))
	r.printSummary(s)
}

func (r *Reporter) printSummary(s model.CrawlSummary) {
	tbl := newTable(r.out, "Metric", "Count")
	tbl.AddRow("Total URLs processed", s.Total)
	tbl.AddRow("Successful", s.Successful)
	tbl.AddRow("Failed", s.Failed)
	tbl.Print()

	if len(s.FailedURLs) == 0 {
		return
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, errorStyle.Render(fmt.Sprintf("Failed URLs (%d):", len(s.FailedURLs))))
	for _, u := range s.FailedURLs[:min(maxFailedShown, len(s.FailedURLs))] {
		fmt.Fprintf(r.out, "  • %s\n", u)
	}
	if len(s.FailedURLs) > maxFailedShown {
		fmt.Fprintf(r.out, "  ... and %d more\n", len(s.FailedURLs)-maxFailedShown)
	}
}

func newTable(out io.Writer, columns ...interface{}) table.Table {
	return table.New(columns...).WithWriter(out).WithHeaderFormatter(styled(headerStyle))
}

// styled renders one table cell or header line. The table hands header formats
// over with their line break, which Render would pad into an extra line.
func styled(s lipgloss.Style) table.Formatter {
	return func(format string, vals ...interface{}) string {
		text := fmt.Sprintf(format, vals...)
		line, found := strings.CutSuffix(text, "\n")
		if !found {
			return s.Render(text)
		}
		return s.Render(line) + "\n"
	}
}

func Warn(out io.Writer, msg string) {
	fmt.Fprintln(out, warnStyle.Render(msg))
}

func Error(out io.Writer, msg string) {
	fmt.Fprintln(out, errorStyle.Render(msg))
}

func Success(out io.Writer, msg string) {
	fmt.Fprintln(out, valueStyle.Render(msg))
}
