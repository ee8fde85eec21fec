package report

import "strconv"

// BlockKind tags a Plan block.
type BlockKind string

const (
	BlockTitle   BlockKind = "title"
	BlockMeta    BlockKind = "meta"
	BlockHeading BlockKind = "heading"
	BlockFigure  BlockKind = "figure"
	BlockTable   BlockKind = "table"
	BlockNotice  BlockKind = "notice"
	BlockFooter  BlockKind = "footer"
)

// RowStyle marks table rows drawn bold or shaded.
type RowStyle string

const (
	RowBody    RowStyle = ""
	RowGroup   RowStyle = "group"   // per-variable header inside a section table
	RowTotal   RowStyle = "total"   // totals row closing a group
	RowAverage RowStyle = "average" // grand average of a Likert table
)

// Row is one table row. Group rows carry a single cell spanning the table.
type Row struct {
	Cells []string
	Style RowStyle
}

// Table is a numbered table with its caption and note.
type Table struct {
	Number  int
	Caption string
	Columns []string
	// Widths are relative column widths; renderers scale them to the page.
	Widths []float64
	Rows   []Row
	Note   string
}

// Figure is a numbered chart image. When the capture failed PNG is nil and
// Placeholder explains what is missing.
type Figure struct {
	Number      int
	Title       string // chart title, named by placeholders
	Caption     string
	Note        string
	Kind        string
	PNG         []byte
	Width       int
	Height      int
	Placeholder string
}

// Block is one unit of the layout plan. A figure or table block is kept
// together with its caption and note; KeepWithNext glues a block to the
// one that follows.
type Block struct {
	Kind         BlockKind
	Text         string
	Figure       *Figure
	Table        *Table
	KeepWithNext bool
}

// Plan is the ordered, format-agnostic content of one report.
type Plan struct {
	Title   string
	Blocks  []Block
	Figures int
	Tables  int
}

func (p *Plan) add(b Block) { p.Blocks = append(p.Blocks, b) }

func (p *Plan) addFigure(f Figure) *Figure {
	p.Figures++
	f.Number = p.Figures
	p.add(Block{Kind: BlockFigure, Figure: &f})
	return &f
}

func (p *Plan) addTable(t Table) *Table {
	p.Tables++
	t.Number = p.Tables
	p.add(Block{Kind: BlockTable, Table: &t})
	return &t
}

// Label is the numbered prefix of the caption.
func (f Figure) Label() string { return "Figura " + strconv.Itoa(f.Number) }

// Label is the numbered prefix of the caption.
func (t Table) Label() string { return "Tabla " + strconv.Itoa(t.Number) }
