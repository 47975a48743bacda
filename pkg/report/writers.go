package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/lyy289065406/arachni/lib"
)

func init() {
	Register("json", func() Reporter { return jsonReporter{} })
	Register("yaml", func() Reporter { return yamlReporter{} })
	Register("txt", func() Reporter { return textReporter{} })
}

type jsonReporter struct{}

func (jsonReporter) Name() string        { return "json" }
func (jsonReporter) Description() string { return "Exports the scan results as a JSON document." }
func (jsonReporter) Extension() string   { return "json" }

func (jsonReporter) Write(snapshot *Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}

type yamlReporter struct{}

func (yamlReporter) Name() string        { return "yaml" }
func (yamlReporter) Description() string { return "Exports the scan results as a YAML document." }
func (yamlReporter) Extension() string   { return "yaml" }

func (yamlReporter) Write(snapshot *Snapshot, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(snapshot)
}

type textReporter struct{}

func (textReporter) Name() string        { return "txt" }
func (textReporter) Description() string { return "Writes a plain text summary of the scan results." }
func (textReporter) Extension() string   { return "txt" }

func (textReporter) Write(snapshot *Snapshot, w io.Writer) error {
	title := snapshot.Options.Title
	if title == "" {
		title = snapshot.Options.URL
	}
	if _, err := fmt.Fprintf(w, "%s (scan %s)\n", title, snapshot.ScanID); err != nil {
		return err
	}
	fmt.Fprintf(w, "Target:   %s\n", snapshot.Options.URL)
	fmt.Fprintf(w, "Started:  %s\n", snapshot.StartTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Finished: %s\n", snapshot.FinishTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Duration: %s\n", snapshot.Delta.Round(time.Millisecond))
	fmt.Fprintf(w, "Pages:    %d\n", len(snapshot.Sitemap))
	fmt.Fprintf(w, "Issues:   %d\n\n", len(snapshot.Issues))

	if len(snapshot.Issues) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader(snapshot.Issues[0].TableHeaders())
		for _, i := range snapshot.Issues {
			table.Append(i.TableRow())
		}
		table.SetBorder(true)
		table.Render()
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Sitemap:")
	_, err := io.WriteString(w, lib.StringsSliceToText(snapshot.Sitemap))
	return err
}
