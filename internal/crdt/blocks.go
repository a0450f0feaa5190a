package crdt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/iudanet/pagecollab/internal/models"
)

// Block attribute keys stored on block separators.
const (
	AttrType     = "type"
	AttrLevel    = "level"
	AttrLanguage = "language"
	AttrList     = "list"
	AttrTable    = "table"
	AttrRow      = "row"
	AttrCol      = "col"

	markPrefix = "mark:"
	markOn     = "true"
)

// MarkAttr returns the element attribute key for an inline mark.
func MarkAttr(markType string) string {
	return markPrefix + markType
}

type textRun struct {
	marks map[string]string
	text  string
}

type flatBlock struct {
	attrs map[string]string
	runs  []textRun
}

// InsertDocument writes a document tree at index as a sequence of blocks.
func (tx *Txn) InsertDocument(index int, doc models.Document) error {
	pos := index
	for _, block := range flattenDocument(doc) {
		for _, run := range block.runs {
			if run.text == "" {
				continue
			}
			if err := tx.Insert(pos, run.text); err != nil {
				return err
			}
			n := utf8.RuneCountInString(run.text)
			for _, key := range sortedKeys(run.marks) {
				if err := tx.Format(pos, n, key, run.marks[key]); err != nil {
					return err
				}
			}
			pos += n
		}
		if err := tx.InsertBlock(pos, "", block.attrs); err != nil {
			return err
		}
		pos++
	}
	return nil
}

// Seed writes doc into the document in one transaction tagged OriginSeed.
// It is a no-op when the document already has text. Blocks without text
// (an empty paragraph of a cleared page) are replaced by doc.
func (d *Doc) Seed(doc models.Document) (bool, error) {
	seeded := false
	err := d.Transact(OriginSeed, func(tx *Txn) error {
		if tx.doc.textLen() != 0 {
			return nil
		}
		if n := tx.Len(); n > 0 {
			if err := tx.Delete(0, n); err != nil {
				return err
			}
		}
		seeded = true
		return tx.InsertDocument(0, doc)
	})
	return seeded, err
}

func flattenDocument(doc models.Document) []flatBlock {
	var blocks []flatBlock
	tables := 0
	for _, node := range doc.Content {
		switch node.Type {
		case models.NodeHeading:
			blocks = append(blocks, flatBlock{
				attrs: map[string]string{AttrType: models.NodeHeading, AttrLevel: strconv.Itoa(intAttr(node.Attrs, "level", 1))},
				runs:  inlineRuns(node.Content),
			})
		case models.NodeCodeBlock:
			language := stringAttr(node.Attrs, "language")
			text := inlineText(node.Content)
			for _, line := range strings.Split(text, "\n") {
				attrs := map[string]string{AttrType: models.NodeCodeBlock}
				if language != "" {
					attrs[AttrLanguage] = language
				}
				blocks = append(blocks, flatBlock{attrs: attrs, runs: []textRun{{text: line}}})
			}
		case models.NodeBulletList, models.NodeOrderedList:
			kind := "bullet"
			if node.Type == models.NodeOrderedList {
				kind = "ordered"
			}
			for _, item := range node.Content {
				for _, para := range itemParagraphs(item) {
					blocks = append(blocks, flatBlock{
						attrs: map[string]string{AttrType: models.NodeListItem, AttrList: kind},
						runs:  inlineRuns(para.Content),
					})
				}
			}
		case models.NodeTable:
			tables++
			tableID := "t" + strconv.Itoa(tables)
			for r, row := range node.Content {
				for c, cell := range row.Content {
					var runs []textRun
					for _, para := range itemParagraphs(cell) {
						runs = append(runs, inlineRuns(para.Content)...)
					}
					blocks = append(blocks, flatBlock{
						attrs: map[string]string{
							AttrType:  models.NodeTableCell,
							AttrTable: tableID,
							AttrRow:   strconv.Itoa(r),
							AttrCol:   strconv.Itoa(c),
						},
						runs: runs,
					})
				}
			}
		case models.NodeHorizontalRule:
			blocks = append(blocks, flatBlock{attrs: map[string]string{AttrType: models.NodeHorizontalRule}})
		default:
			blocks = append(blocks, flatBlock{
				attrs: map[string]string{AttrType: models.NodeParagraph},
				runs:  inlineRuns(node.Content),
			})
		}
	}
	return blocks
}

func itemParagraphs(node models.Node) []models.Node {
	var result []models.Node
	for _, child := range node.Content {
		if child.Type == models.NodeText {
			return []models.Node{{Type: models.NodeParagraph, Content: node.Content}}
		}
		result = append(result, child)
	}
	return result
}

func inlineRuns(content []models.Node) []textRun {
	runs := make([]textRun, 0, len(content))
	for _, node := range content {
		if node.Type != models.NodeText || node.Text == "" {
			continue
		}
		marks := make(map[string]string, len(node.Marks))
		for _, mark := range node.Marks {
			value := markOn
			if len(mark.Attrs) > 0 {
				if data, err := json.Marshal(mark.Attrs); err == nil {
					value = string(data)
				}
			}
			marks[MarkAttr(mark.Type)] = value
		}
		// Переводы строк внутри inline текста превращаются в пробелы
		runs = append(runs, textRun{text: strings.ReplaceAll(node.Text, "\n", " "), marks: marks})
	}
	return runs
}

func inlineText(content []models.Node) string {
	var b strings.Builder
	for _, node := range content {
		b.WriteString(node.Text)
	}
	return b.String()
}

func intAttr(attrs map[string]any, key string, fallback int) int {
	switch v := attrs[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func stringAttr(attrs map[string]any, key string) string {
	if v, ok := attrs[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// line is one block of the projected sequence.
type line struct {
	attrs map[string]string
	elems []*element
}

// Document projects the sequence into a document tree.
func (d *Doc) Document() models.Document {
	d.mu.Lock()
	lines := d.lines()
	d.mu.Unlock()

	var content []models.Node
	for i := 0; i < len(lines); {
		attrs := lines[i].attrs
		switch attrs[AttrType] {
		case models.NodeHeading:
			content = append(content, models.Node{
				Type:    models.NodeHeading,
				Attrs:   map[string]any{"level": intAttr(map[string]any{"level": attrs[AttrLevel]}, "level", 1)},
				Content: inlineNodes(lines[i].elems),
			})
			i++
		case models.NodeHorizontalRule:
			content = append(content, models.Node{Type: models.NodeHorizontalRule})
			i++
		case models.NodeListItem:
			kind := attrs[AttrList]
			node := models.Node{Type: models.NodeBulletList}
			if kind == "ordered" {
				node.Type = models.NodeOrderedList
			}
			for ; i < len(lines) && lines[i].attrs[AttrType] == models.NodeListItem && lines[i].attrs[AttrList] == kind; i++ {
				node.Content = append(node.Content, models.Node{
					Type:    models.NodeListItem,
					Content: []models.Node{{Type: models.NodeParagraph, Content: inlineNodes(lines[i].elems)}},
				})
			}
			content = append(content, node)
		case models.NodeCodeBlock:
			language := attrs[AttrLanguage]
			var codeLines []string
			for ; i < len(lines) && lines[i].attrs[AttrType] == models.NodeCodeBlock && lines[i].attrs[AttrLanguage] == language; i++ {
				codeLines = append(codeLines, plainText(lines[i].elems))
			}
			node := models.Node{Type: models.NodeCodeBlock}
			if language != "" {
				node.Attrs = map[string]any{"language": language}
			}
			if text := strings.Join(codeLines, "\n"); text != "" {
				node.Content = []models.Node{models.Text(text)}
			}
			content = append(content, node)
		case models.NodeTableCell:
			table := attrs[AttrTable]
			node := models.Node{Type: models.NodeTable}
			rowIndex := map[string]int{}
			for ; i < len(lines) && lines[i].attrs[AttrType] == models.NodeTableCell && lines[i].attrs[AttrTable] == table; i++ {
				row := lines[i].attrs[AttrRow]
				idx, ok := rowIndex[row]
				if !ok {
					idx = len(node.Content)
					rowIndex[row] = idx
					node.Content = append(node.Content, models.Node{Type: models.NodeTableRow})
				}
				node.Content[idx].Content = append(node.Content[idx].Content, models.Node{
					Type:    models.NodeTableCell,
					Content: []models.Node{{Type: models.NodeParagraph, Content: inlineNodes(lines[i].elems)}},
				})
			}
			content = append(content, node)
		default:
			content = append(content, models.Node{Type: models.NodeParagraph, Content: inlineNodes(lines[i].elems)})
			i++
		}
	}

	return models.NewDocument(content...)
}

// lines splits visible elements into blocks. Caller holds d.mu.
func (d *Doc) lines() []line {
	var result []line
	current := line{}
	for _, el := range d.elems {
		if el.deleted {
			continue
		}
		if el.value == BlockSeparator {
			current.attrs = el.attrs.Values()
			result = append(result, current)
			current = line{}
			continue
		}
		current.elems = append(current.elems, el)
	}
	if len(current.elems) > 0 {
		current.attrs = map[string]string{}
		result = append(result, current)
	}
	return result
}

func plainText(elems []*element) string {
	var b strings.Builder
	for _, el := range elems {
		b.WriteRune(el.value)
	}
	return b.String()
}

func inlineNodes(elems []*element) []models.Node {
	var nodes []models.Node
	var b strings.Builder
	var currentKey string
	var currentMarks map[string]string

	flush := func() {
		if b.Len() == 0 {
			return
		}
		nodes = append(nodes, models.Text(b.String(), marksFromAttrs(currentMarks)...))
		b.Reset()
	}

	for _, el := range elems {
		marks := markAttrs(el.attrs.Values())
		key := marksKey(marks)
		if key != currentKey {
			flush()
			currentKey = key
			currentMarks = marks
		}
		b.WriteRune(el.value)
	}
	flush()
	return nodes
}

func markAttrs(values map[string]string) map[string]string {
	marks := make(map[string]string)
	for key, value := range values {
		if strings.HasPrefix(key, markPrefix) {
			marks[key] = value
		}
	}
	return marks
}

func marksKey(marks map[string]string) string {
	keys := sortedKeys(marks)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+marks[key])
	}
	return strings.Join(parts, ";")
}

func marksFromAttrs(marks map[string]string) []models.Mark {
	if len(marks) == 0 {
		return nil
	}
	result := make([]models.Mark, 0, len(marks))
	for key, value := range marks {
		mark := models.Mark{Type: strings.TrimPrefix(key, markPrefix)}
		if value != markOn {
			var attrs map[string]any
			if err := json.Unmarshal([]byte(value), &attrs); err == nil {
				mark.Attrs = attrs
			}
		}
		result = append(result, mark)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}
