package cli

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/lipgloss"

	"jabbusiness-client-go/internal/domain/eventbus"
	platformerrors "jabbusiness-client-go/internal/platform/errors"
)

type styles struct {
	header   lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	id       lipgloss.Style
	muted    lipgloss.Style
	positive lipgloss.Style
	negative lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
}

// newStyles binds styles to w so colors are dropped when w is not a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("62")),
		label:    r.NewStyle().Foreground(lipgloss.Color("243")),
		value:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		id:       r.NewStyle().Foreground(lipgloss.Color("240")).Italic(true),
		muted:    r.NewStyle().Foreground(lipgloss.Color("243")),
		positive: r.NewStyle().Foreground(lipgloss.Color("42")),
		negative: r.NewStyle().Foreground(lipgloss.Color("196")),
		success:  r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		failure:  r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

// printer writes command output to stdout and toasts and errors to stderr.
type printer struct {
	stdout io.Writer
	stderr io.Writer
	out    styles
	err    styles
	// mu serializes toasts, which may arrive from bus workers.
	mu sync.Mutex
}

func newPrinter(stdout, stderr io.Writer) *printer {
	return &printer{
		stdout: stdout,
		stderr: stderr,
		out:    newStyles(stdout),
		err:    newStyles(stderr),
	}
}

func (p *printer) println(a ...any) {
	fmt.Fprintln(p.stdout, a...)
}

func (p *printer) printf(format string, a ...any) {
	fmt.Fprintf(p.stdout, format, a...)
}

func (p *printer) header(title string) {
	p.println(p.out.header.Render(title))
}

// field prints an aligned "label  value" line.
func (p *printer) field(label string, value any) {
	p.printf("  %s %s\n", p.out.label.Render(fmt.Sprintf("%-18s", label)), p.out.value.Render(fmt.Sprint(value)))
}

func (p *printer) json(v any) error {
	raw, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.stdout, string(raw))
	return err
}

func (p *printer) toast(ok bool, title, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := title
	if message != "" {
		line += ": " + message
	}
	if ok {
		fmt.Fprintln(p.stderr, p.err.success.Render("✓ "+line))
		return
	}
	fmt.Fprintln(p.stderr, p.err.failure.Render("✗ "+line))
}

func (p *printer) failure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.stderr, p.err.failure.Render("Error: "+platformerrors.MessageOf(err)))
}

// attachToasts renders notify:* events. The handlers only print, so they
// are safe to run under the bus lock.
func (p *printer) attachToasts(bus *eventbus.Bus) error {
	if err := bus.Subscribe(eventbus.TopicNotifySuccess, func(n eventbus.Notification) {
		p.toast(true, n.Title, n.Message)
	}); err != nil {
		return err
	}
	return bus.Subscribe(eventbus.TopicNotifyError, func(n eventbus.Notification) {
		p.toast(false, n.Title, n.Message)
	})
}

// shareURL is the guest link opened in the dashboard web app.
func shareURL(appURL, shareToken string) string {
	return strings.TrimRight(appURL, "/") + "/report/" + url.PathEscape(shareToken)
}

// signedPercent renders a trend with an explicit sign.
func signedPercent(v float64) string {
	switch {
	case v > 0:
		return fmt.Sprintf("+%.1f%%", v)
	case v < 0:
		return fmt.Sprintf("%.1f%%", v)
	default:
		return "0.0%"
	}
}

func (p *printer) trend(v float64) string {
	s := signedPercent(v)
	switch {
	case v > 0:
		return p.out.positive.Render(s)
	case v < 0:
		return p.out.negative.Render(s)
	default:
		return p.out.muted.Render(s)
	}
}

// ratePercent renders a 0..1 rate.
func ratePercent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
