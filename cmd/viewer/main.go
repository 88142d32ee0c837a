// reelgrab-viewer is a read-only terminal view of the download registry.
// It shows what is currently spooled, how large each file is and when the
// sweep will reclaim it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/reelgrab/reelgrab/internal/domain"
	"github.com/reelgrab/reelgrab/internal/repository"
)

const maxRows = 500

func main() {
	registryPath := flag.String("registry", getEnv("REGISTRY_PATH", "./data/registry.db"), "Path to the registry database")
	refresh := flag.Duration("refresh", getDuration("VIEWER_REFRESH", 5*time.Second), "Refresh interval")
	flag.Parse()

	registry, err := repository.NewRegistry(*registryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening registry: %v\n", err)
		os.Exit(1)
	}
	defer registry.Close()

	app := newViewerApp(registry, *refresh)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running viewer: %v\n", err)
		os.Exit(1)
	}
}

// viewerApp is the TUI application. All registry access happens off the UI
// goroutine; updates come back through QueueUpdateDraw.
type viewerApp struct {
	app      *tview.Application
	table    *tview.Table
	header   *tview.TextView
	footer   *tview.TextView
	status   *tview.TextView
	registry *repository.Registry
	refresh  time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

func newViewerApp(registry *repository.Registry, refresh time.Duration) *viewerApp {
	ctx, cancel := context.WithCancel(context.Background())

	a := &viewerApp{
		app:      tview.NewApplication(),
		registry: registry,
		refresh:  refresh,
		ctx:      ctx,
		cancel:   cancel,
	}

	a.setupUI()
	return a
}

func (a *viewerApp) setupUI() {
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[white::b]reelgrab[white] - Download Registry")
	a.header.SetBackgroundColor(tcell.ColorDarkBlue)

	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]r[white]:Refresh [yellow]q[white]:Quit")
	a.footer.SetBackgroundColor(tcell.ColorDarkBlue)

	a.status = tview.NewTextView().
		SetDynamicColors(true)
	a.status.SetBackgroundColor(tcell.ColorDarkGreen)

	a.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.table.SetBorder(true).SetTitle(" Downloads ")
	a.table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(tcell.ColorWhite).
		Background(tcell.ColorDarkCyan))

	headers := []string{"ID", "PLATFORM", "KIND", "TITLE", "SIZE", "AGE", "EXPIRES IN"}
	for i, h := range headers {
		cell := tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetExpansion(1)
		if h == "TITLE" {
			cell.SetExpansion(3)
		}
		a.table.SetCell(0, i, cell)
	}

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(a.table, 0, 1, true).
		AddItem(a.status, 1, 0, false).
		AddItem(a.footer, 1, 0, false)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'q', 'Q':
				a.Stop()
				return nil
			case 'r', 'R':
				go a.refreshTable()
				return nil
			}
		}
		return event
	})

	a.app.SetRoot(flex, true)
}

// Run starts the viewer and its background refresh loop.
func (a *viewerApp) Run() error {
	go a.backgroundRefresh()
	go a.refreshTable()

	return a.app.Run()
}

// Stop tears down the viewer.
func (a *viewerApp) Stop() {
	a.cancel()
	a.app.Stop()
}

func (a *viewerApp) backgroundRefresh() {
	ticker := time.NewTicker(a.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.refreshTable()
		}
	}
}

// refreshTable reloads the registry contents and redraws the table.
func (a *viewerApp) refreshTable() {
	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()

	downloads, err := a.registry.List(ctx, maxRows)
	if err != nil {
		a.setStatus(fmt.Sprintf("[red]Error: %v", err))
		return
	}
	total, err := a.registry.Count(ctx)
	if err != nil {
		total = len(downloads)
	}

	now := time.Now().UTC()

	a.app.QueueUpdateDraw(func() {
		for row := a.table.GetRowCount() - 1; row > 0; row-- {
			a.table.RemoveRow(row)
		}

		for i, d := range downloads {
			a.renderRow(i+1, d, now)
		}

		if len(downloads) == 0 {
			cell := tview.NewTableCell("Registry is empty").
				SetTextColor(tcell.ColorYellow)
			a.table.SetCell(1, 0, cell)
		}
	})

	a.setStatus(fmt.Sprintf("[green]%d download(s)", total))
}

func (a *viewerApp) renderRow(row int, d *domain.Download, now time.Time) {
	title := d.Title
	if title == "" {
		title = d.Filename
	}

	remaining := d.ExpiresAt.Sub(now)
	expiryText := shortDuration(remaining)
	expiryColor := tcell.ColorWhite
	switch {
	case remaining <= 0:
		expiryText = "expired"
		expiryColor = tcell.ColorRed
	case remaining < time.Hour:
		expiryColor = tcell.ColorYellow
	}

	cells := []struct {
		text  string
		color tcell.Color
	}{
		{string(d.ID), tcell.ColorWhite},
		{string(d.Platform), tcell.ColorWhite},
		{string(d.Kind), tcell.ColorWhite},
		{title, tcell.ColorWhite},
		{humanBytes(d.Size), tcell.ColorWhite},
		{shortDuration(now.Sub(d.CreatedAt)), tcell.ColorWhite},
		{expiryText, expiryColor},
	}

	for col, c := range cells {
		cell := tview.NewTableCell(c.text).
			SetTextColor(c.color).
			SetExpansion(1)
		if col == 3 {
			cell.SetExpansion(3)
		}
		a.table.SetCell(row, col, cell)
	}
}

func (a *viewerApp) setStatus(msg string) {
	a.app.QueueUpdateDraw(func() {
		a.status.SetText(fmt.Sprintf(" %s | Last refresh: %s", msg, time.Now().Format("15:04:05")))
	})
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func shortDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
	case d >= time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
