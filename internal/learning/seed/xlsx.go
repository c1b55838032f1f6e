package seed

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook columns, matched case-insensitively against the header row.
var xlsxColumns = []string{
	"level_order", "level_title", "level_description",
	"module_order", "module_title", "module_description",
	"item_order", "item_title", "item_content", "item_type",
}

func LoadXLSX(path string) (*Curriculum, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

func ParseXLSX(r io.Reader) (*Curriculum, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

// readWorkbook flattens one row per item (or per empty module) from the
// first sheet back into the tree.
func readWorkbook(f *excelize.File) (*Curriculum, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"level_order", "level_title", "module_order", "module_title"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q (want %s)", col, strings.Join(xlsxColumns, ", "))
		}
	}
	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	intCell := func(row []string, col string, line int) (int, error) {
		v := cell(row, col)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("row %d: %s %q is not an integer", line, col, v)
		}
		return n, nil
	}

	levels := map[int]*LevelSpec{}
	modules := map[[2]int]*ModuleSpec{}
	for i, row := range rows[1:] {
		line := i + 2
		if strings.Join(row, "") == "" {
			continue
		}
		lo, err := intCell(row, "level_order", line)
		if err != nil {
			return nil, err
		}
		mo, err := intCell(row, "module_order", line)
		if err != nil {
			return nil, err
		}
		itemOrder, err := intCell(row, "item_order", line)
		if err != nil {
			return nil, err
		}

		l, ok := levels[lo]
		if !ok {
			l = &LevelSpec{Order: lo, Title: cell(row, "level_title"), Description: cell(row, "level_description")}
			levels[lo] = l
		}
		key := [2]int{lo, mo}
		m, ok := modules[key]
		if !ok {
			m = &ModuleSpec{Order: mo, Title: cell(row, "module_title"), Description: cell(row, "module_description")}
			modules[key] = m
		}
		if title := cell(row, "item_title"); title != "" || itemOrder != 0 {
			m.Items = append(m.Items, ItemSpec{
				Order:   itemOrder,
				Title:   title,
				Content: cell(row, "item_content"),
				Type:    cell(row, "item_type"),
			})
		}
	}

	c := &Curriculum{}
	for _, l := range levels {
		for key, m := range modules {
			if key[0] == l.Order {
				sort.Slice(m.Items, func(a, b int) bool { return m.Items[a].Order < m.Items[b].Order })
				l.Modules = append(l.Modules, *m)
			}
		}
		sort.Slice(l.Modules, func(a, b int) bool { return l.Modules[a].Order < l.Modules[b].Order })
		c.Levels = append(c.Levels, *l)
	}
	sort.Slice(c.Levels, func(a, b int) bool { return c.Levels[a].Order < c.Levels[b].Order })

	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// WriteXLSX renders a curriculum into the workbook layout read by LoadXLSX.
func WriteXLSX(c *Curriculum, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(xlsxColumns))
	for i, h := range xlsxColumns {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	line := 2
	put := func(vals ...interface{}) error {
		addr, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		line++
		return f.SetSheetRow(sheet, addr, &vals)
	}
	for _, l := range c.Levels {
		for _, m := range l.Modules {
			if len(m.Items) == 0 {
				if err := put(l.Order, l.Title, l.Description, m.Order, m.Title, m.Description); err != nil {
					return err
				}
				continue
			}
			for _, it := range m.Items {
				if err := put(l.Order, l.Title, l.Description, m.Order, m.Title, m.Description,
					it.Order, it.Title, it.Content, it.Type); err != nil {
					return err
				}
			}
		}
	}
	_, err := f.WriteTo(w)
	return err
}
