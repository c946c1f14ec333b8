package main

import (
	"strconv"

	"github.com/creations-api/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderQueueTable draws one row per queue with the length right-aligned
func renderQueueTable(queues []models.QueueInfo) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Queue", "Length", "Locked"})

	for _, q := range queues {
		locked := "no"
		if q.Locked {
			locked = "yes"
		}
		tw.AppendRow(table.Row{q.Name, strconv.Itoa(q.Length), locked})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render() + "\n"
}
