package infrastructure

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/nguyenthenguyen/docx"

	"shiftmatch/domain"
)

// DocxTemplateRenderer fills {{placeholder}} markers in a Word template.
type DocxTemplateRenderer struct {
	template []byte
}

// NewDocxTemplateRenderer reads the template once; a missing file is a startup error.
func NewDocxTemplateRenderer(path string) (*DocxTemplateRenderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labor document template: %w", err)
	}
	// fail early on a file Word cannot open
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse labor document template: %w", err)
	}
	_ = r.Close()
	return &DocxTemplateRenderer{template: data}, nil
}

func (d *DocxTemplateRenderer) Render(doc domain.LaborDocument) ([]byte, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(d.template), int64(len(d.template)))
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer r.Close()

	editable := r.Editable()
	fields := doc.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := editable.Replace("{{"+k+"}}", fields[k], -1); err != nil {
			return nil, fmt.Errorf("replace %s: %w", k, err)
		}
	}

	var buf bytes.Buffer
	if err := editable.Write(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), nil
}
