package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/iudanet/pagecollab/internal/client/session"
	"github.com/iudanet/pagecollab/internal/crdt"
	"github.com/iudanet/pagecollab/internal/models"
)

const editorHelp = `  <text>               Append a paragraph
  - <text>             Append a bullet list item
  :h1 / :h2 / :h3 <t>  Append a heading
  :save                Save the page now
  :status              Show connection and save status
  :who                 List other participants and their cursors
  :cursor <index>      Move your cursor
  :print               Print the page
  :offline / :online   Simulate network loss
  :quit                Leave the page (asks when there are unsaved changes)`

var errUnknownCommand = errors.New("unknown command, type :help")

// execute применяет одну строку ввода. Возвращает true, если нужно выйти.
func (c *Cli) execute(ctx context.Context, s *session.Session, line string) (bool, error) {
	if strings.TrimSpace(line) == "" {
		return false, nil
	}

	if !strings.HasPrefix(line, ":") {
		if item, ok := strings.CutPrefix(line, "- "); ok {
			return false, appendBlock(s, item, map[string]string{crdt.AttrType: models.NodeListItem, crdt.AttrList: "bullet"})
		}
		return false, appendBlock(s, line, map[string]string{crdt.AttrType: models.NodeParagraph})
	}

	command, arg, _ := strings.Cut(line, " ")
	switch command {
	case ":h1", ":h2", ":h3":
		if arg == "" {
			return false, fmt.Errorf("heading text is required")
		}
		return false, appendBlock(s, arg, map[string]string{
			crdt.AttrType:  models.NodeHeading,
			crdt.AttrLevel: strings.TrimPrefix(command, ":h"),
		})
	case ":save":
		s.ManualSave(ctx)
		if err := s.LastSaveError(); err != nil {
			return false, fmt.Errorf("save failed: %w", err)
		}
		c.io.Println("Saved.")
	case ":status":
		c.printStatus(s.Status())
	case ":who":
		c.printCursors(s.RemoteCursors())
	case ":cursor":
		index, err := strconv.Atoi(arg)
		if err != nil || index < 0 {
			return false, fmt.Errorf("cursor index must be a non-negative number")
		}
		s.SetCursor(index, index)
	case ":print":
		c.io.Println(Render(s.Document()))
	case ":offline":
		s.SetOnline(false)
	case ":online":
		s.SetOnline(true)
	case ":help":
		c.io.Println(editorHelp)
	case ":quit", ":q":
		return s.ConfirmLeave(c.confirmLeave), nil
	default:
		return false, errUnknownCommand
	}
	return false, nil
}

// confirmLeave спрашивает подтверждение выхода со страницы с несохраненными правками
func (c *Cli) confirmLeave() bool {
	answer, err := c.io.ReadInput("Page has unsaved changes. Leave anyway? [y/N] ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (c *Cli) printStatus(st session.Status) {
	c.io.Printf("Status:     %s\n", st.Label)
	if st.Collaborative {
		c.io.Printf("Connection: %s\n", st.Connection)
		c.io.Printf("Pending:    %d\n", st.Sync.Pending)
	}
	c.io.Printf("Save:       %s\n", st.Save)
	if !st.CacheSynced {
		c.io.Println("Local cache is still writing.")
	}
}

func (c *Cli) printCursors(cursors []models.Cursor) {
	if len(cursors) == 0 {
		c.io.Println("Nobody else is here.")
		return
	}
	for _, cur := range cursors {
		name := cur.Name
		if name == "" {
			name = cur.UserID
		}
		if cur.Anchor == cur.Head {
			c.io.Printf("%s (%s) at %d\n", name, cur.Color, cur.Head)
			continue
		}
		c.io.Printf("%s (%s) selecting %d-%d\n", name, cur.Color, cur.Anchor, cur.Head)
	}
}

// appendBlock добавляет блок в конец документа
func appendBlock(s *session.Session, text string, attrs map[string]string) error {
	return s.Edit(func(tx *crdt.Txn) error {
		end := tx.Len()
		// У последнего блока может не быть разделителя, если текст вставлен напрямую
		if end > 0 && utf8.RuneCountInString(tx.Text()) == end {
			if err := tx.Insert(end, string(crdt.BlockSeparator)); err != nil {
				return err
			}
			end++
		}
		return tx.InsertBlock(end, text, attrs)
	})
}
