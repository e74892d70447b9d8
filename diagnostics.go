package dmn

import (
	"fmt"
	"strings"

	"github.com/Delta456/box-cli-maker/v2"
	"github.com/alexeyco/simpletable"
	"github.com/dustin/go-humanize"
)

// Report renders the Result as a boxed diagnostic report with the decisions,
// the current context and the messages.
func (r *Result) Report() string {
	Box := box.New(box.Config{Px: 2, Py: 1, Type: "Double", Color: "Cyan", TitlePos: "Top", ContentAlign: "Left"})

	s := strings.Builder{}
	s.WriteString("Request:\n")
	s.WriteString("--------\n")
	s.WriteString(r.id)
	s.WriteString("\n")
	fmt.Fprintf(&s, "%s nodes evaluated, %s messages, outcome %s\n\n",
		humanize.Comma(int64(r.evaluated)), humanize.Comma(int64(len(r.messages))), r.outcome.Type)

	s.WriteString("Decisions:\n")
	s.WriteString("----------\n")
	s.WriteString(r.decisionTable().String())
	s.WriteString("\n\n")

	if r.context.Len() > 0 {
		s.WriteString("Context:\n")
		s.WriteString("--------\n")
		s.WriteString(contextTable(r.context).String())
		s.WriteString("\n\n")
	}

	s.WriteString("Messages:\n")
	s.WriteString("---------\n")
	s.WriteString(r.messageTable().String())

	return Box.String("DMN EVALUATION REPORT", s.String())
}

func (r *Result) decisionTable() *simpletable.Table {
	table := simpletable.New()
	table.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignCenter, Text: "Decision"},
			{Align: simpletable.AlignCenter, Text: "Status"},
			{Align: simpletable.AlignCenter, Text: "Value"},
		},
	}

	for _, name := range r.decisionRows() {
		value := ""
		if v, ok := r.decisions[name]; ok {
			value = fmt.Sprintf("%v", v)
		}
		table.Body.Cells = append(table.Body.Cells, []*simpletable.Cell{
			{Text: name},
			{Text: r.status[name].String()},
			{Text: wordWrap(value, 60)},
		})
	}
	table.SetStyle(simpletable.StyleUnicode)
	return table
}

func contextTable(c *Context) *simpletable.Table {
	table := simpletable.New()
	table.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignCenter, Text: "Name"},
			{Align: simpletable.AlignCenter, Text: "Value"},
		},
	}

	for _, k := range c.Names() {
		v, _ := c.Get(k)
		table.Body.Cells = append(table.Body.Cells, []*simpletable.Cell{
			{Text: k},
			{Text: wordWrap(fmt.Sprintf("%v", v), 60)},
		})
	}
	table.SetStyle(simpletable.StyleUnicode)
	return table
}

func (r *Result) messageTable() *simpletable.Table {
	table := simpletable.New()
	table.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignCenter, Text: "#"},
			{Align: simpletable.AlignCenter, Text: "Severity"},
			{Align: simpletable.AlignCenter, Text: "Node"},
			{Align: simpletable.AlignCenter, Text: "Message"},
		},
	}

	for i, m := range r.messages {
		text := m.Text
		if m.Cause != nil {
			text += ": " + m.Cause.Error()
		}
		table.Body.Cells = append(table.Body.Cells, []*simpletable.Cell{
			{Align: simpletable.AlignRight, Text: fmt.Sprintf("%d", i+1)},
			{Text: m.Severity.String()},
			{Text: m.SourceID},
			{Text: wordWrap(text, 80)},
		})
	}
	table.SetStyle(simpletable.StyleUnicode)
	return table
}

func wordWrap(text string, lineWidth int) string {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) == 0 {
		return text
	}
	wrapped := words[0]
	spaceLeft := lineWidth - len(wrapped)
	for _, word := range words[1:] {
		if len(word)+1 > spaceLeft {
			wrapped += "\n" + word
			spaceLeft = lineWidth - len(word)
		} else {
			wrapped += " " + word
			spaceLeft -= 1 + len(word)
		}
	}

	return wrapped
}
