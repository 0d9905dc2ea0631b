package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// emptyCell — значение для пустых колонок (config/split у задач
// уровня датасета, не начатые started_at).
const emptyCell = "-"

// Output форматирует вывод CLI: таблица или JSON в stdout,
// сообщения в stderr.
type Output struct {
	jsonMode bool
	stdout   io.Writer
	stderr   io.Writer
}

// NewOutput создаёт Output поверх os.Stdout/os.Stderr.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с заданными writer'ами.
func NewOutputTo(jsonMode bool, stdout, stderr io.Writer) *Output {
	return &Output{jsonMode: jsonMode, stdout: stdout, stderr: stderr}
}

// IsJSON возвращает true в JSON-режиме.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// Print выводит jsonData в JSON-режиме, иначе таблицу.
// Пустая таблица заменяется сообщением в stderr.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.writeJSON(jsonData)
		return
	}
	if len(rows) == 0 {
		o.Success("No results.")
		return
	}
	o.table(headers, rows)
}

// Raw выводит ответ API как есть, с отступами. Кэш отдаёт JSON,
// поэтому режим --json на него не влияет.
func (o *Output) Raw(data []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		buf.Reset()
		buf.Write(data)
	}
	buf.WriteByte('\n')
	o.stdout.Write(buf.Bytes())
}

// Success выводит сообщение в stderr, чтобы не ломать pipe.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.stderr, msg)
}

func (o *Output) table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == "" {
				v = emptyCell
			}
			cells[i] = v
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func (o *Output) writeJSON(v any) {
	enc := json.NewEncoder(o.stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
