// Package ui implements the terminal dashboard: the active case header,
// the evidence log table, the inspector pane for the selected record,
// and the activity trail. All case/evidence state lives in caselog; this
// package only renders it and routes analyst input.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/SakshiShukla1/forensight/internal/caselog"
	"github.com/SakshiShukla1/forensight/internal/evidence"
	"github.com/SakshiShukla1/forensight/internal/ingest"
	"github.com/SakshiShukla1/forensight/internal/report"
	"github.com/SakshiShukla1/forensight/internal/scan"
	"github.com/SakshiShukla1/forensight/internal/store"
)

// Dashboard is the investigator-facing TUI.
type Dashboard struct {
	app      *tview.Application
	ctx      context.Context
	cases    *caselog.Store
	archive  *store.Store
	scanner  scan.Client
	recorder *ingest.Recorder
	logger   *log.Logger

	exportDir string

	pages         *tview.Pages
	layout        *tview.Flex
	headerBar     *tview.TextView
	evidenceTable *tview.Table
	inspector     *tview.TextView
	activityView  *tview.TextView
	statusBar     *tview.TextView

	// busy is the single-flight scan flag: at most one in-flight scan
	// per dashboard. Toggled around the network call, reset only after
	// the log append completes.
	busy int32

	// visible mirrors the table rows (row 1 = visible[0]) so a click
	// maps back to a record id.
	visible []evidence.Record

	modalActive bool
}

// NewDashboard constructs the dashboard. The archive may be nil.
func NewDashboard(ctx context.Context, cases *caselog.Store, archive *store.Store,
	scanner scan.Client, recorder *ingest.Recorder, exportDir string, logger *log.Logger) *Dashboard {
	if logger == nil {
		logger = log.New(log.Writer(), "[ui] ", log.LstdFlags)
	}
	if exportDir == "" {
		exportDir = "exports"
	}
	return &Dashboard{
		app:       tview.NewApplication(),
		ctx:       ctx,
		cases:     cases,
		archive:   archive,
		scanner:   scanner,
		recorder:  recorder,
		exportDir: exportDir,
		logger:    logger,
	}
}

// Start builds the layout and runs the TUI until quit or ctx cancel.
func (d *Dashboard) Start(ctx context.Context) error {
	d.buildLayout()
	d.refresh()

	go func() {
		<-ctx.Done()
		d.app.Stop()
	}()

	d.app.SetInputCapture(d.handleKey)
	d.app.SetRoot(d.pages, true)

	// No case yet: the session starts with the create-case dialog.
	if _, ok := d.cases.ActiveCase(); !ok {
		d.showCreateCaseModal()
	}

	return d.app.Run()
}

// NotifyIngest redraws after an out-of-band ingest (drop folder).
func (d *Dashboard) NotifyIngest(rec evidence.Record) {
	d.app.QueueUpdateDraw(func() {
		d.refresh()
		d.setStatus(fmt.Sprintf("Evidence ingested from drop folder: [%s] %s", rec.Module, rec.Target))
	})
}

func (d *Dashboard) buildLayout() {
	d.headerBar = tview.NewTextView().SetDynamicColors(true)
	d.headerBar.SetBorder(true).SetTitle(" Active Case ")

	d.evidenceTable = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	d.evidenceTable.SetBorder(true).SetTitle(" Evidence Log ")
	d.evidenceTable.SetSelectedFunc(func(row, col int) {
		if row >= 1 && row-1 < len(d.visible) {
			d.cases.Select(d.visible[row-1].ID)
			d.renderInspector()
		}
	})

	d.inspector = tview.NewTextView().SetDynamicColors(true).SetWordWrap(true)
	d.inspector.SetBorder(true).SetTitle(" Inspector ")

	d.activityView = tview.NewTextView().SetDynamicColors(true)
	d.activityView.SetBorder(true).SetTitle(" Activity ")

	d.statusBar = tview.NewTextView().SetDynamicColors(true)
	d.statusBar.SetText("[yellow]n[white]=new case  [yellow]c[white]=switch  [yellow]1[white]=URL  [yellow]2[white]=Email  [yellow]3[white]=File  [yellow]4[white]=Browser  [yellow]e[white]=export  [yellow]q[white]=quit")

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.inspector, 0, 2, false).
		AddItem(d.activityView, 0, 1, false)

	body := tview.NewFlex().
		AddItem(d.evidenceTable, 0, 3, true).
		AddItem(right, 0, 2, false)

	d.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.headerBar, 3, 0, false).
		AddItem(body, 0, 1, true).
		AddItem(d.statusBar, 1, 0, false)

	d.pages = tview.NewPages().AddPage("main", d.layout, true, true)
}

func (d *Dashboard) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if d.modalActive {
		return event
	}
	switch event.Rune() {
	case 'n':
		d.showCreateCaseModal()
		return nil
	case 'c':
		d.showSwitchCaseModal()
		return nil
	case '1':
		d.showScanModal(evidence.ModuleURL, "URL to analyze")
		return nil
	case '2':
		d.showScanModal(evidence.ModuleEmail, "Email address or raw sender")
		return nil
	case '3':
		d.showScanModal(evidence.ModuleFile, "File path or hash")
		return nil
	case '4':
		d.triggerScan(evidence.ModuleBrowser, "")
		return nil
	case 'e':
		d.exportReport()
		return nil
	case 'q':
		d.app.Stop()
		return nil
	}
	return event
}

// triggerScan runs one scan under the single-flight policy. The busy
// flag resets only after the record has been appended to the log, so a
// follow-up scan always sees the completed one.
func (d *Dashboard) triggerScan(module evidence.Module, target string) {
	if module != evidence.ModuleBrowser && strings.TrimSpace(target) == "" {
		d.setStatus("[red]Target is required")
		return
	}
	if _, ok := d.cases.ActiveCase(); !ok {
		d.setStatus("[red]Create a case first")
		return
	}
	if !d.beginScan() {
		d.setStatus("[yellow]A scan is already in progress")
		return
	}

	d.setStatus(fmt.Sprintf("Scanning [%s]...", module))

	go func() {
		rec, err := d.executeScan(module, target)
		if err != nil {
			d.logger.Printf("scan %s failed: %v", module, err)
			d.app.QueueUpdateDraw(func() {
				d.setStatus("[red]Scan failed: " + err.Error())
			})
			return
		}

		d.app.QueueUpdateDraw(func() {
			d.refresh()
			d.setStatus(fmt.Sprintf("[green]Recorded %s evidence: %s (%s, risk %d%%)",
				rec.Module, rec.Target, rec.Verdict, rec.Score))
		})
	}()
}

// beginScan reserves the single-flight scan slot. It returns false while
// another scan holds it.
func (d *Dashboard) beginScan() bool {
	return atomic.CompareAndSwapInt32(&d.busy, 0, 1)
}

// executeScan runs the backend call and records the result. The caller
// must hold the scan slot; it is released when executeScan returns,
// strictly after the log append, so a follow-up scan always sees the
// completed one. On error the log is untouched.
func (d *Dashboard) executeScan(module evidence.Module, target string) (evidence.Record, error) {
	defer atomic.StoreInt32(&d.busy, 0)

	var res *scan.Result
	var err error
	if module == evidence.ModuleBrowser {
		res, err = d.scanner.BrowserScan(d.ctx)
	} else {
		res, err = d.scanner.AnalyzeURL(d.ctx, target)
	}
	if err != nil {
		return evidence.Record{}, err
	}

	return d.recorder.Record(d.ctx, module, target, res)
}

func (d *Dashboard) exportReport() {
	active, ok := d.cases.ActiveCase()
	if !ok {
		d.setStatus("[red]No active case")
		return
	}

	path, err := report.Write(d.exportDir, active, d.cases.ActiveLog(), time.Now())
	var empty *report.EmptyLogError
	if errors.As(err, &empty) {
		d.setStatus("[yellow]Nothing to export: the case has no evidence")
		return
	}
	if err != nil {
		d.setStatus("[red]Export failed: " + err.Error())
		return
	}

	if d.archive != nil {
		if err := d.archive.LogActivity(d.ctx, active.ID, "report_exported",
			map[string]interface{}{"file": path}); err != nil {
			d.logger.Printf("log export activity: %v", err)
		}
	}

	d.refresh()
	d.setStatus("[green]Report exported to " + path)
}

func (d *Dashboard) showCreateCaseModal() {
	form := tview.NewForm()
	form.SetTitle(" Create New Case ").SetBorder(true)

	var name string
	form.AddInputField("Case name", "", 40, nil, func(text string) {
		name = text
	})
	form.AddButton("Create", func() {
		snap, err := d.cases.CreateCase(name)
		var invalid *caselog.InvalidNameError
		if errors.As(err, &invalid) {
			d.setStatus("[red]Case name must not be empty")
			return
		}
		if err != nil {
			d.setStatus("[red]" + err.Error())
			return
		}
		if d.archive != nil {
			if err := d.archive.SaveCase(d.ctx, snap.ID, snap.Name, snap.CreatedAt); err != nil {
				d.logger.Printf("archive case %d: %v", snap.ID, err)
			}
			if err := d.archive.LogActivity(d.ctx, snap.ID, "case_created",
				map[string]interface{}{"name": snap.Name}); err != nil {
				d.logger.Printf("log case activity: %v", err)
			}
		}
		d.popModal()
		d.refresh()
		d.setStatus(fmt.Sprintf("[green]Case %q opened (id %d)", snap.Name, snap.ID))
	})
	form.AddButton("Cancel", func() {
		d.popModal()
	})

	d.pushModal(form, 50, 9)
}

func (d *Dashboard) showSwitchCaseModal() {
	all := d.cases.Cases()
	if len(all) < 2 {
		d.setStatus("No other cases to switch to")
		return
	}

	form := tview.NewForm()
	form.SetTitle(" Switch Case ").SetBorder(true)

	options := make([]string, len(all))
	for i, c := range all {
		options[i] = fmt.Sprintf("%s (id %d, %d items)", c.Name, c.ID, c.EvidenceCount)
	}

	selected := 0
	form.AddDropDown("Case", options, 0, func(option string, index int) {
		selected = index
	})
	form.AddButton("Switch", func() {
		target := all[selected]
		if err := d.cases.SwitchCase(target.ID); err != nil {
			d.setStatus("[red]" + err.Error())
			return
		}
		if d.archive != nil {
			if err := d.archive.LogActivity(d.ctx, target.ID, "case_switched", nil); err != nil {
				d.logger.Printf("log switch activity: %v", err)
			}
		}
		d.popModal()
		d.refresh()
		d.setStatus(fmt.Sprintf("[green]Switched to case %q", target.Name))
	})
	form.AddButton("Cancel", func() {
		d.popModal()
	})

	d.pushModal(form, 60, 9)
}

func (d *Dashboard) showScanModal(module evidence.Module, label string) {
	form := tview.NewForm()
	form.SetTitle(fmt.Sprintf(" %s Scan ", module)).SetBorder(true)

	var target string
	form.AddInputField(label, "", 50, nil, func(text string) {
		target = text
	})
	form.AddButton("Scan", func() {
		if strings.TrimSpace(target) == "" {
			d.setStatus("[red]Target is required")
			return
		}
		d.popModal()
		d.triggerScan(module, target)
	})
	form.AddButton("Cancel", func() {
		d.popModal()
	})

	d.pushModal(form, 64, 9)
}

func (d *Dashboard) pushModal(p tview.Primitive, width, height int) {
	centered := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)

	d.modalActive = true
	d.pages.AddPage("modal", centered, true, true)
	d.app.SetFocus(p)
}

func (d *Dashboard) popModal() {
	d.modalActive = false
	d.pages.RemovePage("modal")
	d.app.SetFocus(d.evidenceTable)
}

// refresh re-renders every pane from the state container.
func (d *Dashboard) refresh() {
	d.renderHeader()
	d.renderEvidenceTable()
	d.renderInspector()
	d.renderActivity()
}

func (d *Dashboard) renderHeader() {
	active, ok := d.cases.ActiveCase()
	if !ok {
		d.headerBar.SetText("[gray]No case open - press n to create one")
		return
	}
	d.headerBar.SetText(headerText(active))
}

func (d *Dashboard) renderEvidenceTable() {
	d.evidenceTable.Clear()

	headers := []string{"#", "TYPE", "TARGET", "VERDICT", "RISK", "CAPTURED"}
	for col, h := range headers {
		d.evidenceTable.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}

	d.visible = d.cases.ActiveLog()
	total := len(d.visible)
	for i, rec := range d.visible {
		cells := formatEvidenceRow(rec, total-i)
		for col, text := range cells {
			cell := tview.NewTableCell(text)
			if col == 4 {
				cell.SetTextColor(riskColor(rec.Score))
			}
			d.evidenceTable.SetCell(i+1, col, cell)
		}
	}
}

func (d *Dashboard) renderInspector() {
	rec, ok := d.cases.Selected()
	if !ok {
		d.inspector.SetText("[gray]No evidence selected")
		return
	}
	d.inspector.SetText(inspectorText(rec))
}

func (d *Dashboard) renderActivity() {
	if d.archive == nil {
		d.activityView.SetText("[gray]Archive disabled")
		return
	}
	active, ok := d.cases.ActiveCase()
	if !ok {
		d.activityView.SetText("")
		return
	}
	entries, err := d.archive.GetActivity(d.ctx, active.ID, 20)
	if err != nil {
		d.logger.Printf("load activity: %v", err)
		return
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[gray]%s[white] %s\n", e.CreatedAt.Format("15:04:05"), e.Action)
	}
	d.activityView.SetText(b.String())
}

func (d *Dashboard) setStatus(msg string) {
	d.statusBar.SetText(msg)
}

// headerText renders the active-case summary line.
func headerText(c caselog.Snapshot) string {
	return fmt.Sprintf("[yellow]%s[white]  id=%d  evidence=%d  opened=%s",
		c.Name, c.ID, c.EvidenceCount, c.CreatedAt.Format("2006-01-02 15:04"))
}

// formatEvidenceRow builds the table cells for one record. number is the
// stable evidence number (highest = most recent, matching the report).
func formatEvidenceRow(rec evidence.Record, number int) []string {
	return []string{
		fmt.Sprintf("%d", number),
		string(rec.Module),
		rec.Target,
		rec.Verdict,
		fmt.Sprintf("%d%%", rec.Score),
		rec.Timestamp,
	}
}

// inspectorText renders the detail pane for a selected record.
func inspectorText(rec evidence.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%s[white] evidence #%d\n\n", rec.Module, rec.ID)
	fmt.Fprintf(&b, "Target:    %s\n", rec.Target)
	fmt.Fprintf(&b, "Verdict:   %s\n", rec.Verdict)
	fmt.Fprintf(&b, "Risk:      [%s]%d%%[white]\n", riskTag(rec.Score), rec.Score)
	fmt.Fprintf(&b, "Captured:  %s\n", rec.Timestamp)
	b.WriteString("\nFindings:\n")
	if len(rec.Details) == 0 {
		b.WriteString("  [gray]none[white]\n")
	}
	for _, detail := range rec.Details {
		fmt.Fprintf(&b, "  - %s\n", detail)
	}
	return b.String()
}

// riskTag maps a risk score to a text color tag: high risk reads red,
// elevated yellow, low green.
func riskTag(score int) string {
	switch {
	case score >= 70:
		return "red"
	case score >= 40:
		return "yellow"
	default:
		return "green"
	}
}

func riskColor(score int) tcell.Color {
	switch {
	case score >= 70:
		return tcell.ColorRed
	case score >= 40:
		return tcell.ColorYellow
	default:
		return tcell.ColorGreen
	}
}
