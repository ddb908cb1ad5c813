package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Output разделяет данные и сообщения: данные (таблица или JSON) идут
// в stdout и пригодны для пайпов, сообщения и ошибки идут в stderr.
type Output struct {
	data     io.Writer
	messages io.Writer
	json     bool
}

func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(os.Stdout, os.Stderr, jsonMode)
}

func NewOutputTo(data, messages io.Writer, jsonMode bool) *Output {
	return &Output{data: data, messages: messages, json: jsonMode}
}

func (o *Output) JSONMode() bool { return o.json }

// Messages — поток для логов и прогресса.
func (o *Output) Messages() io.Writer { return o.messages }

// Print выводит value как JSON в режиме --json, иначе таблицу.
func (o *Output) Print(headers []string, rows [][]string, value any) {
	if o.json {
		o.JSON(value)
		return
	}
	o.Table(headers, rows)
}

// Table выравнивает колонки пробелами. Пустая ячейка печатается как "-".
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.data, 0, 0, 2, ' ', 0)
	writeRow(tw, headers)
	for _, row := range rows {
		writeRow(tw, row)
	}
	_ = tw.Flush()
}

func writeRow(w io.Writer, cells []string) {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteByte('\t')
		}
		if c == "" {
			c = "-"
		}
		b.WriteString(c)
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(w, b.String())
}

func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.data)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (o *Output) Success(msg string) { fmt.Fprintln(o.messages, msg) }

func (o *Output) Error(msg string) { fmt.Fprintln(o.messages, "Error: "+msg) }
