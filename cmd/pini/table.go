// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urfave/cli"
)

// printTable writes rows under headers.  Columns listed in right are
// right-aligned.
func printTable(c *cli.Context, headers []string, rows [][]string, right ...int) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(right))
	for _, n := range right {
		configs = append(configs, table.ColumnConfig{
			Number:      n,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	fmt.Fprintln(c.App.Writer, tw.Render())
}

// size formats a byte count from metadata.
func size(value interface{}) string {
	switch n := value.(type) {
	case int:
		return humanize.Bytes(uint64(n))
	case int64:
		return humanize.Bytes(uint64(n))
	}
	return ""
}

// age formats a Unix time from metadata.
func age(value interface{}) string {
	var sec int64
	switch n := value.(type) {
	case int:
		sec = int64(n)
	case int64:
		sec = n
	default:
		return ""
	}
	return humanize.Time(time.Unix(sec, 0))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
