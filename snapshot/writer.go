package snapshot

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

// Field is one scalar child element.
type Field struct {
	Tag   string
	Value string
}

// Group is a nested list such as an order's lines.
type Group struct {
	Tag     string
	ItemTag string
	Items   [][]Field
}

// Node is one record.
type Node struct {
	Fields []Field
	Groups []Group
}

// Tree is everything one export writes. The XML document and its text mirror are both rendered
// from the same Records.
type Tree struct {
	Kind    Kind
	Mode    models.ExportMode
	Date    string
	Root    string
	Record  string
	Title   string
	Records []Node
}

// nodeWriter emits elements one token at a time.
type nodeWriter struct {
	enc *xml.Encoder
}

func (w nodeWriter) open(tag string) error {
	return w.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: tag}})
}

func (w nodeWriter) close(tag string) error {
	return w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: tag}})
}

func (w nodeWriter) scalar(tag string, value string) error {
	if err := w.open(tag); err != nil {
		return err
	}
	if value != "" {
		if err := w.enc.EncodeToken(xml.CharData(value)); err != nil {
			return err
		}
	}
	return w.close(tag)
}

func (w nodeWriter) fields(fields []Field) error {
	for _, f := range fields {
		if err := w.scalar(f.Tag, f.Value); err != nil {
			return err
		}
	}
	return nil
}

// WriteXML renders the tree as an indented UTF-8 document.
func WriteXML(out io.Writer, tree *Tree) error {
	if _, err := io.WriteString(out, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	w := nodeWriter{enc: enc}

	if err := w.open(tree.Root); err != nil {
		return err
	}
	for _, rec := range tree.Records {
		if err := w.open(tree.Record); err != nil {
			return err
		}
		if err := w.fields(rec.Fields); err != nil {
			return err
		}
		for _, g := range rec.Groups {
			if err := w.open(g.Tag); err != nil {
				return err
			}
			for _, item := range g.Items {
				if err := w.open(g.ItemTag); err != nil {
					return err
				}
				if err := w.fields(item); err != nil {
					return err
				}
				if err := w.close(g.ItemTag); err != nil {
					return err
				}
			}
			if err := w.close(g.Tag); err != nil {
				return err
			}
		}
		if err := w.close(tree.Record); err != nil {
			return err
		}
	}
	if err := w.close(tree.Root); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(out, "\n")
	return err
}

// FileStem names an export: the kind's document name for a full export, otherwise
// kind_mode_yyyymmdd so the file still maps back to its kind.
func FileStem(kind Kind, mode models.ExportMode, date string) string {
	if mode == models.ExportModeFull {
		if l, ok := layouts[kind]; ok {
			return strings.TrimSuffix(l.File, filepath.Ext(l.File))
		}
	}
	return fmt.Sprintf("%s_%s_%s", kind, mode, strings.ReplaceAll(utils.NormalizeDate(date), "-", ""))
}

// WriteFiles writes the XML document and its text mirror into dir and returns both paths.
func WriteFiles(dir string, tree *Tree) ([]string, error) {
	op := "write " + string(tree.Kind)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, utils.StorageError(op, err)
	}
	stem := FileStem(tree.Kind, tree.Mode, tree.Date)
	xmlPath := filepath.Join(dir, stem+".xml")
	txtPath := filepath.Join(dir, stem+".txt")

	if err := writeFile(xmlPath, func(w io.Writer) error { return WriteXML(w, tree) }); err != nil {
		return nil, utils.StorageError(op, err)
	}
	if err := writeFile(txtPath, func(w io.Writer) error { return WriteText(w, tree) }); err != nil {
		return nil, utils.StorageError(op, err)
	}
	return []string{xmlPath, txtPath}, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := render(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
