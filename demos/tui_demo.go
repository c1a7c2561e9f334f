// Demo program that plays a scripted fetch run through the progress view.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"travis-log-fetch/src/contracts"
	"travis-log-fetch/src/fetch"
	"travis-log-fetch/src/tui"
)

var sampleJobs = []contracts.FetchRecord{
	{Slug: "rails/rails", JobID: 648112001, JobNumber: "52101.1", State: "passed", Bytes: 182_331},
	{Slug: "rails/rails", JobID: 648112002, JobNumber: "52101.2", State: "failed", Bytes: 1_204_882},
	{Slug: "rails/rails", JobID: 648112003, JobNumber: "52101.3", State: "passed", Bytes: 96_004, Skipped: true},
	{Slug: "jekyll/jekyll", JobID: 648119870, JobNumber: "9812.1", State: "errored", Bytes: 12_450},
	{Slug: "jekyll/jekyll", JobID: 648119871, JobNumber: "9812.2", State: "passed", Bytes: 77_310},
	{Slug: "some-organization/a-rather-long-project-name", JobID: 648120555, JobNumber: "301.1", State: "canceled", Bytes: 4_096},
}

func main() {
	p := tea.NewProgram(tui.NewModel("https://travis-ci.org", nil), tea.WithAltScreen())

	go func() {
		send := func(ev fetch.Event) {
			p.Send(tui.EventMsg(ev))
			time.Sleep(400 * time.Millisecond)
		}
		send(fetch.Event{Kind: fetch.EventExpanded, Count: 3})
		p.Send(tui.LogMsg{Level: "WARNING", Text: "slug octo/missing not found on Travis"})
		send(fetch.Event{Kind: fetch.EventResolved, Count: len(sampleJobs)})
		for i := range sampleJobs {
			r := sampleJobs[i]
			r.Path = fmt.Sprintf("~/.travis/%s/%s-%s.txt", r.Slug, r.JobNumber, r.State)
			send(fetch.Event{Kind: fetch.EventWritten, Record: &r})
		}
		send(fetch.Event{Kind: fetch.EventDone})
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
