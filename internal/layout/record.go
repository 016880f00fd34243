package layout

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/robert-malhotra/go-pds3/internal/dtype"
	"github.com/robert-malhotra/go-pds3/internal/label"
)

// asciiSlack is the number of line-terminator bytes an ASCII row may carry
// beyond its columns without an issue being raised.
const asciiSlack = 2

// BitField is a bit-level field inside a column. StartBit is 0-based from
// the most significant bit of the column after byte-order normalization.
type BitField struct {
	Name       string
	StartBit   int
	Bits       int
	Items      int
	ItemBits   int
	ItemOffset int
	DataType   string
	Type       dtype.BitType
	Node       *label.Node
}

// End returns the bit after the last bit of the field.
func (b BitField) End() int {
	end := b.StartBit + b.Bits
	if b.Items > 1 {
		if e := b.StartBit + b.ItemOffset*(b.Items-1) + b.ItemBits; e > end {
			end = e
		}
	}
	return end
}

// Column is one field of a record. StartByte is 0-based from the start of
// the record, row prefix included.
type Column struct {
	Name       string
	Block      string
	StartByte  int
	Bytes      int
	Items      int
	ItemBytes  int
	ItemOffset int
	DataType   string
	Type       dtype.Type
	Order      binary.ByteOrder
	Bits       []BitField
	Scaling    dtype.Scaling
	Field      int // 1-based field number in delimited tables
	Node       *label.Node
}

// IsBitColumn reports whether the column is read as bit fields.
func (c *Column) IsBitColumn() bool {
	return len(c.Bits) > 0
}

// End returns the byte after the last byte of the column.
func (c *Column) End() int {
	return c.StartByte + c.Bytes
}

// Record is the layout of one row of a table, series, spreadsheet or array.
type Record struct {
	Name      string
	Columns   []*Column
	Prefix    int
	Suffix    int
	RowBytes  int // declared, 0 when absent
	Computed  int // extent of the columns, prefix excluded
	Rows      int // 0 when the row count is not declared
	Shape     []int
	ASCII     bool
	Delimiter string
	Issues    []Issue
}

// RowLength returns the length of a row without prefix and suffix.
func (r *Record) RowLength() int {
	if r.RowBytes > 0 {
		return r.RowBytes
	}
	return r.Computed
}

// Stride returns the distance between the starts of consecutive rows.
func (r *Record) Stride() int {
	return r.Prefix + r.RowLength() + r.Suffix
}

// Span returns the number of distinct bytes covered by the columns.
func (r *Record) Span() int {
	type iv struct{ lo, hi int }
	ivs := make([]iv, 0, len(r.Columns))
	for _, c := range r.Columns {
		ivs = append(ivs, iv{c.StartByte, c.End()})
	}
	slices.SortFunc(ivs, func(a, b iv) int { return a.lo - b.lo })
	total, hi := 0, -1
	for _, v := range ivs {
		if v.lo > hi {
			total += v.hi - v.lo
			hi = v.hi
			continue
		}
		if v.hi > hi {
			total += v.hi - hi
			hi = v.hi
		}
	}
	return total
}

// Column returns the column with the given name.
func (r *Record) Column(name string) *Column {
	for _, c := range r.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// RecordOptions configures NewRecord.
type RecordOptions struct {
	// Name labels errors; defaults to the block key.
	Name string
	// Structures resolves ^STRUCTURE statements.
	Structures StructureLoader
	// MaxStructureDepth bounds nested format files.
	MaxStructureDepth int
}

var columnKinds = []string{"COLUMN", "FIELD", "ELEMENT", "BIT_COLUMN", "CONTAINER", "COLLECTION", "ARRAY", "BIT_ELEMENT"}

var delimiters = map[string]string{
	"COMMA":        ",",
	"SEMICOLON":    ";",
	"TAB":          "\t",
	"VERTICAL_BAR": "|",
}

// NewRecord computes the record layout of a TABLE-like or ARRAY block.
func NewRecord(block *label.Node, opts RecordOptions) (*Record, error) {
	name := opts.Name
	if name == "" {
		name = block.Key
	}
	fail := func(field string, err error) (*Record, error) {
		return nil, &LayoutError{Object: name, Field: field, Err: err}
	}

	block, err := ExpandStructures(block, opts.Structures, opts.MaxStructureDepth)
	if err != nil {
		return fail("", err)
	}

	r := &Record{Name: name}
	r.Prefix = intOf(block, "ROW_PREFIX_BYTES")
	r.Suffix = intOf(block, "ROW_SUFFIX_BYTES")
	r.RowBytes = intOf(block, "ROW_BYTES")
	r.Rows = intOf(block, "ROWS")
	if r.Rows == 0 {
		r.Rows = intOf(block, "RECORDS")
	}

	format, _ := block.Text("INTERCHANGE_FORMAT")
	r.ASCII = strings.EqualFold(format, "ASCII") || isSpreadsheet(block.Key)
	if d, ok := block.Text("FIELD_DELIMITER"); ok {
		r.Delimiter = delimiters[dtype.Normalize(d)]
		if r.Delimiter == "" {
			r.Delimiter = d
		}
	} else if isSpreadsheet(block.Key) {
		r.Delimiter = ","
	}
	if r.Delimiter != "" {
		r.ASCII = true
	}

	b := &builder{rec: r, name: name}
	if isArrayBlock(block) {
		if err := b.array(block); err != nil {
			return fail(b.field, err)
		}
	} else if err := b.children(block, r.Prefix, ""); err != nil {
		return fail(b.field, err)
	}
	if len(r.Columns) == 0 {
		return fail("", ErrNoColumns)
	}

	reindexNames(r.Columns)
	if err := b.checkBits(); err != nil {
		return fail(b.field, err)
	}

	r.Computed = b.extent - r.Prefix
	for _, c := range r.Columns {
		if e := c.End() - r.Prefix; e > r.Computed {
			r.Computed = e
		}
	}
	if r.Delimiter != "" {
		slices.SortStableFunc(r.Columns, func(a, b *Column) int { return a.Field - b.Field })
		return r, nil
	}
	if r.RowBytes > 0 {
		switch {
		case r.RowBytes < r.Computed:
			return fail("", fmt.Errorf("%w: ROW_BYTES %d, columns end at %d", ErrRowBytes, r.RowBytes, r.Computed))
		case r.RowBytes > r.Computed && !(r.ASCII && r.RowBytes-r.Computed <= asciiSlack):
			r.Issues = append(r.Issues, Issue{
				Msg: fmt.Sprintf("ROW_BYTES %d exceeds column extent %d; using declared length", r.RowBytes, r.Computed),
				Err: ErrRowPadding,
			})
		}
	}
	return r, nil
}

func isSpreadsheet(key string) bool {
	return strings.Contains(strings.ToUpper(key), "SPREADSHEET")
}

func isArrayBlock(block *label.Node) bool {
	return block.Has("AXIS_ITEMS") && !block.Has("ROWS")
}

func intOf(n *label.Node, key string) int {
	v, ok := n.Int(key)
	if !ok {
		return 0
	}
	return int(v)
}

type builder struct {
	rec    *Record
	name   string
	field  string
	extent int // furthest cursor reached, container padding included
}

// children lays out the column blocks of n. base is the record offset of
// byte 1 of n.
func (b *builder) children(n *label.Node, base int, container string) error {
	cursor := base
	for _, c := range n.Blocks(columnKinds...) {
		kind := strings.ToUpper(c.Key)
		colName, _ := c.Text("NAME")
		b.field = colName
		if colName == "" {
			b.field = kind
		}

		start := cursor
		if sb, ok := c.Int("START_BYTE"); ok {
			start = base + int(sb) - 1
		}

		switch kind {
		case "CONTAINER", "COLLECTION":
			size := intOf(c, "BYTES")
			reps := intOf(c, "REPETITIONS")
			if reps < 1 {
				reps = 1
			}
			if size < 1 && reps > 1 {
				return fmt.Errorf("%w: BYTES for repeated %s", ErrMissingKeyword, kind)
			}
			for i := 0; i < reps; i++ {
				if err := b.children(c, start+i*size, colName); err != nil {
					return err
				}
			}
			if size > 0 {
				cursor = start + reps*size
			} else {
				cursor = b.maxEnd(start)
			}
		case "ARRAY":
			col, err := b.nestedArray(c, start, container)
			if err != nil {
				return err
			}
			b.rec.Columns = append(b.rec.Columns, col)
			cursor = col.End()
		case "BIT_COLUMN", "BIT_ELEMENT":
			// Only meaningful inside a column; handled by column().
		default:
			col, err := b.column(c, start, container)
			if err != nil {
				return err
			}
			b.rec.Columns = append(b.rec.Columns, col)
			cursor = col.End()
		}
		b.extent = max(b.extent, cursor)
	}
	return nil
}

func (b *builder) maxEnd(from int) int {
	end := from
	for _, c := range b.rec.Columns {
		if c.End() > end {
			end = c.End()
		}
	}
	return end
}

func (b *builder) column(c *label.Node, start int, container string) (*Column, error) {
	name, _ := c.Text("NAME")
	if name == "" {
		name = c.Key
	}
	dataType, _ := c.Text("DATA_TYPE")
	col := &Column{
		Name:      name,
		Block:     container,
		StartByte: start,
		Bytes:     intOf(c, "BYTES"),
		Items:     intOf(c, "ITEMS"),
		ItemBytes: intOf(c, "ITEM_BYTES"),
		DataType:  dtype.Normalize(dataType),
		Order:     dtype.ByteOrderOf(dataType),
		Scaling:   dtype.ScalingFrom(c),
		Field:     intOf(c, "FIELD_NUMBER"),
		Node:      c,
	}
	if col.Items < 1 {
		col.Items = 1
	}
	if col.Items > 1 {
		if col.ItemBytes < 1 && col.Bytes > 0 {
			col.ItemBytes = col.Bytes / col.Items
		}
		col.ItemOffset = col.ItemBytes
		if off, ok := c.Int("ITEM_OFFSET"); ok {
			if int(off) < col.ItemBytes {
				return nil, fmt.Errorf("%w: ITEM_OFFSET %d, ITEM_BYTES %d", ErrItemOffset, off, col.ItemBytes)
			}
			col.ItemOffset = int(off)
		}
		if need := col.ItemOffset*(col.Items-1) + col.ItemBytes; need > col.Bytes {
			col.Bytes = need
		}
	} else {
		col.ItemBytes = col.Bytes
		col.ItemOffset = col.Bytes
	}
	if col.Bytes < 1 {
		return nil, fmt.Errorf("%w: BYTES", ErrMissingKeyword)
	}

	typ, err := dtype.Lookup(col.DataType, col.ItemBytes, b.rec.ASCII)
	switch {
	case err == nil:
		col.Type = typ
	case b.rec.ASCII:
		// Any token reads as text in an ASCII table.
		col.Type, _ = dtype.Lookup("CHARACTER", col.ItemBytes, true)
	case hasBits(c):
		// Decoded through its bit fields.
	default:
		return nil, err
	}

	if bits, ok := c.Int("BITS"); ok && c.Has("START_BIT") {
		sb, _ := c.Int("START_BIT")
		bt, err := dtype.LookupBits(col.DataType)
		if err != nil {
			return nil, err
		}
		col.Bits = append(col.Bits, BitField{
			Name: name, StartBit: int(sb) - 1, Bits: int(bits), Items: 1,
			ItemBits: int(bits), ItemOffset: int(bits), DataType: col.DataType, Type: bt, Node: c,
		})
	}
	for _, bc := range c.Blocks("BIT_COLUMN", "BIT_ELEMENT") {
		f, err := bitField(bc)
		if err != nil {
			return nil, err
		}
		col.Bits = append(col.Bits, f)
	}
	return col, nil
}

func hasBits(c *label.Node) bool {
	return c.Has("START_BIT") || len(c.Blocks("BIT_COLUMN", "BIT_ELEMENT")) > 0
}

func bitField(bc *label.Node) (BitField, error) {
	name, _ := bc.Text("NAME")
	token, _ := bc.Text("BIT_DATA_TYPE")
	if token == "" {
		token, _ = bc.Text("DATA_TYPE")
	}
	bt, err := dtype.LookupBits(token)
	if err != nil {
		return BitField{}, err
	}
	f := BitField{
		Name:     name,
		StartBit: intOf(bc, "START_BIT") - 1,
		Bits:     intOf(bc, "BITS"),
		Items:    intOf(bc, "ITEMS"),
		ItemBits: intOf(bc, "ITEM_BITS"),
		DataType: dtype.Normalize(token),
		Type:     bt,
		Node:     bc,
	}
	if f.StartBit < 0 {
		return BitField{}, fmt.Errorf("%w: START_BIT of %s", ErrMissingKeyword, name)
	}
	if f.Items < 1 {
		f.Items = 1
	}
	if f.ItemBits < 1 {
		f.ItemBits = f.Bits / f.Items
	}
	f.ItemOffset = f.ItemBits
	if off, ok := bc.Int("ITEM_OFFSET"); ok {
		f.ItemOffset = int(off)
	}
	if f.Bits < 1 {
		f.Bits = f.ItemOffset*(f.Items-1) + f.ItemBits
	}
	if f.ItemBits < 1 {
		return BitField{}, fmt.Errorf("%w: BITS of %s", ErrMissingKeyword, name)
	}
	return f, nil
}

// checkBits makes the bit fields of every byte range disjoint. Bit columns
// declared as separate COLUMNs at the same start byte share one range.
func (b *builder) checkBits() error {
	type span struct{ start, bytes int }
	groups := map[span][]*BitField{}
	var order []span
	for _, c := range b.rec.Columns {
		if !c.IsBitColumn() {
			continue
		}
		k := span{c.StartByte, c.Bytes}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		for i := range c.Bits {
			f := &c.Bits[i]
			b.field = c.Name + "." + f.Name
			if f.StartBit < 0 || f.End() > c.Bytes*8 {
				return fmt.Errorf("%w: bits [%d, %d) of %d", ErrBitRange, f.StartBit, f.End(), c.Bytes*8)
			}
			groups[k] = append(groups[k], f)
		}
	}

	for _, k := range order {
		fields := groups[k]
		for i, f := range fields {
			b.field = f.Name
			for _, prev := range fields[:i] {
				if f.StartBit == prev.StartBit && f.Bits != prev.Bits {
					moved := prev.End()
					b.rec.Issues = append(b.rec.Issues, Issue{
						Field: f.Name,
						Msg:   fmt.Sprintf("shares start bit %d with %s; moved to bit %d", f.StartBit+1, prev.Name, moved+1),
					})
					f.StartBit = moved
					if f.End() > k.bytes*8 {
						return fmt.Errorf("%w: relocated to [%d, %d) of %d", ErrBitRange, f.StartBit, f.End(), k.bytes*8)
					}
				}
			}
			for _, prev := range fields[:i] {
				if f.StartBit < prev.End() && prev.StartBit < f.End() {
					return fmt.Errorf("%w: %s [%d, %d) and %s [%d, %d)", ErrBitOverlap,
						prev.Name, prev.StartBit, prev.End(), f.Name, f.StartBit, f.End())
				}
			}
		}
	}
	return nil
}

// array lays out an ARRAY block as a record holding one element, or one
// collection, repeated Π AXIS_ITEMS times.
func (b *builder) array(block *label.Node) error {
	shape := axisItems(block)
	if len(shape) == 0 {
		return fmt.Errorf("%w: AXIS_ITEMS", ErrMissingKeyword)
	}
	b.rec.Shape = shape
	if b.rec.Rows == 0 {
		b.rec.Rows = product(shape)
	}
	if err := b.children(block, b.rec.Prefix, ""); err != nil {
		return err
	}
	if len(b.rec.Columns) == 0 && block.Has("DATA_TYPE") {
		col, err := b.column(block, b.rec.Prefix, "")
		if err != nil {
			return err
		}
		b.rec.Columns = append(b.rec.Columns, col)
	}
	return nil
}

// nestedArray folds an ARRAY inside a record into a single column whose
// items are the array's elements.
func (b *builder) nestedArray(c *label.Node, start int, container string) (*Column, error) {
	shape := axisItems(c)
	elems := c.Blocks("ELEMENT")
	if len(shape) == 0 || len(elems) != 1 {
		return nil, fmt.Errorf("%w: nested ARRAY needs AXIS_ITEMS and one ELEMENT", ErrMissingKeyword)
	}
	col, err := b.column(elems[0], start, container)
	if err != nil {
		return nil, err
	}
	if name, ok := c.Text("NAME"); ok {
		col.Name = name
	}
	n := product(shape)
	col.ItemBytes = col.Bytes
	col.ItemOffset = col.Bytes
	col.Items = n
	col.Bytes = col.ItemBytes * n
	if declared := intOf(c, "BYTES"); declared > col.Bytes {
		col.Bytes = declared
	}
	return col, nil
}

func axisItems(n *label.Node) []int {
	v, ok := n.Get("AXIS_ITEMS")
	if !ok {
		return nil
	}
	if !v.IsAggregate() {
		if i, ok := v.AsInt(); ok {
			return []int{int(i)}
		}
		return nil
	}
	shape := make([]int, 0, len(v.Items))
	for _, item := range v.Items {
		i, ok := item.AsInt()
		if !ok {
			return nil
		}
		shape = append(shape, int(i))
	}
	return shape
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// reindexNames makes column names unique. Repeated RESERVED or SPARE
// columns are named after their 1-based start byte; any other repeated
// name gets _0, _1, ... suffixes in column order.
func reindexNames(cols []*Column) {
	counts := map[string]int{}
	for _, c := range cols {
		counts[c.Name]++
	}
	for _, c := range cols {
		if counts[c.Name] < 2 {
			continue
		}
		upper := strings.ToUpper(c.Name)
		if upper == "RESERVED" || upper == "SPARE" {
			c.Name = fmt.Sprintf("%s_%d", upper, c.StartByte+1)
		}
	}

	counts = map[string]int{}
	for _, c := range cols {
		counts[c.Name]++
	}
	seen := map[string]int{}
	for _, c := range cols {
		if counts[c.Name] < 2 {
			continue
		}
		base := c.Name
		c.Name = fmt.Sprintf("%s_%d", base, seen[base])
		seen[base]++
	}
}
