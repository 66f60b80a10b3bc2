package journal

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/backtester/event"
)

// RunReport is the data behind the Org-mode run summary.
type RunReport struct {
	Run
	FillLog []event.Fill
}

var runOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"symbols": func(r Run) string { return joinSymbols(r.Symbols) },
	"fill":    FormatFillOrg,
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// FormatRunOrg renders a run and its fills as an Org-mode block.
func FormatRunOrg(r Run, fills []event.Fill) (string, error) {
	buf := new(bytes.Buffer)
	if err := runOrg.Execute(buf, RunReport{Run: r, FillLog: fills}); err != nil {
		return "", fmt.Errorf("render run %s: %w", r.RunID, err)
	}
	return buf.String(), nil
}

// WriteRunOrg writes FormatRunOrg output to path.
func WriteRunOrg(path string, r Run, fills []event.Fill) error {
	s, err := FormatRunOrg(r, fills)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0644)
}

// FormatFillOrg renders a fill as one Org table row.
func FormatFillOrg(f event.Fill) string {
	var b strings.Builder
	b.WriteString("| ")
	b.WriteString(f.Time.UTC().Format("2006-01-02"))
	b.WriteString(" | ")
	b.WriteString(shortID(f.OrderID))
	b.WriteString(fmt.Sprintf(" | %s | %s | %d | %.2f | %.2f |", f.Symbol, f.Direction, f.Quantity, f.FillPrice, f.Commission))
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}

const RunOrgTemplate = `* BACKTEST: {{.Strategy}} {{symbols .Run}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:SYMBOLS:     {{symbols .Run}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_BAL:   {{printf "%.2f" .InitialCapital}}
:END_BAL:     {{printf "%.2f" .FinalEquity}}
:RETURN_PCT:  {{printf "%.2f" (mul100 .TotalReturn)}}
:SHARPE:      {{printf "%.2f" .Sharpe}}
:MAX_DD_PCT:  {{printf "%.2f" (mul100 .MaxDrawdown)}}
:DD_CYCLES:   {{.DrawdownDuration}}
:COMMISSION:  {{printf "%.2f" .Commission}}
:CYCLES:      {{.Cycles}}
:ORDERS:      {{.Orders}}
:FILLS:       {{.Fills}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Total Return:     *{{printf "%.2f" (mul100 .TotalReturn)}}%*
- Sharpe Ratio:     *{{printf "%.2f" .Sharpe}}*
- Max Drawdown:     *{{printf "%.2f" (mul100 .MaxDrawdown)}}%* over {{.DrawdownDuration}} cycles
- Commission Paid:  *{{printf "%.2f" .Commission}}*
{{- if .Config }}

** Config
#+begin_src yaml
{{printf "%s" .Config}}
#+end_src
{{- end }}
{{- if .FillLog }}

** Fills
| Date | Order | Symbol | Side | Qty | Price | Commission |
|------+-------+--------+------+-----+-------+------------|
{{- range .FillLog }}
{{fill .}}
{{- end }}
{{- end }}
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
