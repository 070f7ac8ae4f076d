package ingest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

// ErrInvalidEPUB is returned for archives that are not readable EPUBs.
var ErrInvalidEPUB = errors.New("invalid EPUB file")

// NCX XML structures for parsing toc.ncx
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	Label    navLabel   `xml:"navLabel"`
	Content  navContent `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

// OpenEPUB reads the EPUB file at path.
func OpenEPUB(filename string) (*Document, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEPUB, err)
	}
	defer rc.Close()

	doc, err := readBook(&rc.Reader)
	if err != nil {
		return nil, err
	}
	if doc.Title == "" {
		doc.Title = TitleFromPath(filename)
	}
	return doc, nil
}

// ReadEPUB reads an EPUB archive of the given size from r.
func ReadEPUB(r io.ReaderAt, size int64) (*Document, error) {
	reader, err := epub.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEPUB, err)
	}
	return readBook(reader)
}

// readBook converts every non-empty spine item to one chapter text and
// reads the TOC from the NCX, falling back to the EPUB 3 nav document.
func readBook(r *epub.Reader) (*Document, error) {
	if len(r.Rootfiles) == 0 {
		return nil, fmt.Errorf("%w: no rootfiles found in epub", ErrInvalidEPUB)
	}
	book := r.Rootfiles[0]

	doc := &Document{
		Title:    strings.TrimSpace(book.Title),
		Chapters: []string{},
		TOC:      []string{},
	}

	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		text, err := itemText(ref.Item)
		if err != nil || text == "" {
			continue
		}
		doc.Chapters = append(doc.Chapters, text)
	}
	if len(doc.Chapters) == 0 {
		return nil, ErrNoChapters
	}

	if toc, err := readTOC(book); err == nil {
		doc.TOC = toc
	}
	return doc, nil
}

func itemText(item *epub.Item) (string, error) {
	rc, err := item.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return extractText(rc)
}

func readTOC(book *epub.Rootfile) ([]string, error) {
	for i := range book.Manifest.Items {
		item := &book.Manifest.Items[i]
		if item.MediaType == "application/x-dtbncx+xml" {
			return readNCX(item)
		}
	}
	for i := range book.Manifest.Items {
		item := &book.Manifest.Items[i]
		if item.ID == "nav" || strings.EqualFold(path.Base(item.HREF), "nav.xhtml") {
			rc, err := item.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return navTitles(rc)
		}
	}
	return []string{}, nil
}

func readNCX(item *epub.Item) ([]string, error) {
	rc, err := item.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var toc ncx
	if err := xml.NewDecoder(rc).Decode(&toc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}
	return flattenNavPoints(toc.NavMap.NavPoints, nil), nil
}

// flattenNavPoints lists labels depth first, parents before children.
func flattenNavPoints(points []navPoint, out []string) []string {
	if out == nil {
		out = []string{}
	}
	for _, np := range points {
		if title := strings.Join(strings.Fields(np.Label.Text), " "); title != "" {
			out = append(out, title)
		}
		out = flattenNavPoints(np.Children, out)
	}
	return out
}
