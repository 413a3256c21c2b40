package cli

import (
	"fmt"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/forPelevin/reelcut/internal/logging"
	"github.com/forPelevin/reelcut/internal/progress"
)

// watch echoes a job's progress to stderr: an updating line on a
// terminal, one log record per stage otherwise.
func (a *app) watch(tracker *progress.Tracker, id string) func() {
	snaps, cancel := tracker.Subscribe(id)
	tty := logging.IsTerminal(a.stderr)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		stage := ""
		drawn := false
		draw := func(s progress.Snapshot) {
			switch {
			case tty:
				fmt.Fprintf(a.stderr, "\r%-16s %3d%%", s.Stage, s.Percent)
				drawn = true
			case s.Stage != stage && s.Stage != "":
				a.log.Info("progress", "job_id", id, "stage", s.Stage, "percent", s.Percent)
			}
			stage = s.Stage
		}
		for {
			select {
			case <-done:
				select {
				case s := <-snaps:
					draw(s)
				default:
				}
				if drawn {
					fmt.Fprintln(a.stderr)
				}
				return
			case s := <-snaps:
				draw(s)
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
			cancel()
		})
	}
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}
