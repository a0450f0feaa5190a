package cli

import (
	"strconv"
	"strings"

	"github.com/iudanet/pagecollab/internal/models"
)

// Render форматирует документ для терминала в markdown-подобном виде
func Render(doc models.Document) string {
	if doc.IsEmpty() {
		return "(empty page)"
	}

	var lines []string
	for _, node := range doc.Content {
		switch node.Type {
		case models.NodeHeading:
			level := 1
			if v, ok := node.Attrs["level"]; ok {
				switch l := v.(type) {
				case int:
					level = l
				case float64:
					level = int(l)
				}
			}
			lines = append(lines, strings.Repeat("#", level)+" "+node.PlainText())
		case models.NodeBulletList:
			for _, item := range node.Content {
				lines = append(lines, "- "+item.PlainText())
			}
		case models.NodeOrderedList:
			for i, item := range node.Content {
				lines = append(lines, strconv.Itoa(i+1)+". "+item.PlainText())
			}
		case models.NodeCodeBlock:
			lines = append(lines, "```", node.PlainText(), "```")
		case models.NodeHorizontalRule:
			lines = append(lines, "---")
		case models.NodeTable:
			for _, row := range node.Content {
				cells := make([]string, 0, len(row.Content))
				for _, cell := range row.Content {
					cells = append(cells, cell.PlainText())
				}
				lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
			}
		default:
			lines = append(lines, node.PlainText())
		}
	}
	return strings.Join(lines, "\n")
}
