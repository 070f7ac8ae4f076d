package ingest

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const contentOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Long Road</dc:title>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="cover" href="cover.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="cover"/>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

const tocNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="p1" playOrder="1">
      <navLabel><text>Part One</text></navLabel>
      <content src="text/ch1.xhtml"/>
      <navPoint id="p1c1" playOrder="2">
        <navLabel><text>Chapter  1: Leaving</text></navLabel>
        <content src="text/ch1.xhtml#c1"/>
      </navPoint>
    </navPoint>
    <navPoint id="p2" playOrder="3">
      <navLabel><text>Chapter 2: Arriving</text></navLabel>
      <content src="text/ch2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

const coverXHTML = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Cover</title></head>
<body><div><img src="cover.jpg"/></div></body></html>`

const ch1XHTML = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Chapter 1</title><style>p { color: red; }</style></head>
<body>
  <h1 id="c1">Chapter 1: Leaving</h1>
  <p>Ann   packed her
     bags.</p>
  <p>She <em>left</em> at dawn.</p>
  <script>var x = 1;</script>
</body></html>`

const ch2XHTML = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Chapter 2</title></head>
<body><h1>Chapter 2: Arriving</h1><p>The city was loud.</p></body></html>`

func buildEPUB(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("create mimetype: %v", err)
	}
	w.Write([]byte("application/epub+zip"))

	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		w.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func sampleEPUB(t *testing.T) []byte {
	return buildEPUB(t, map[string]string{
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf":      contentOPF,
		"OEBPS/toc.ncx":          tocNCX,
		"OEBPS/cover.xhtml":      coverXHTML,
		"OEBPS/text/ch1.xhtml":   ch1XHTML,
		"OEBPS/text/ch2.xhtml":   ch2XHTML,
	})
}

func TestReadEPUB(t *testing.T) {
	data := sampleEPUB(t)

	doc, err := ReadEPUB(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadEPUB() error = %v", err)
	}

	if doc.Title != "The Long Road" {
		t.Errorf("Title = %q", doc.Title)
	}
	wantTOC := []string{"Part One", "Chapter 1: Leaving", "Chapter 2: Arriving"}
	if !reflect.DeepEqual(doc.TOC, wantTOC) {
		t.Errorf("TOC = %q, want %q", doc.TOC, wantTOC)
	}
	if len(doc.Chapters) != 2 {
		t.Fatalf("Chapters = %d, want 2 (empty cover skipped): %q", len(doc.Chapters), doc.Chapters)
	}
	wantCh1 := "Chapter 1: Leaving\n\nAnn packed her bags.\n\nShe left at dawn."
	if doc.Chapters[0] != wantCh1 {
		t.Errorf("chapter 1 = %q, want %q", doc.Chapters[0], wantCh1)
	}
	if strings.Contains(doc.Chapters[0], "color") || strings.Contains(doc.Chapters[0], "var x") {
		t.Error("style or script text leaked into chapter")
	}
}

func TestOpenEPUB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.epub")
	if err := os.WriteFile(path, sampleEPUB(t), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(doc.Chapters) != 2 || doc.Title != "The Long Road" {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestReadEPUB_Invalid(t *testing.T) {
	data := []byte("not a zip archive")
	if _, err := ReadEPUB(bytes.NewReader(data), int64(len(data))); !errors.Is(err, ErrInvalidEPUB) {
		t.Errorf("expected ErrInvalidEPUB, got %v", err)
	}
}

func TestReadText(t *testing.T) {
	t.Run("markdown headings", func(t *testing.T) {
		input := "Some front matter.\n\n# Chapter One\nAnn left.\n\n# Chapter Two\nShe arrived.\n"
		doc, err := ReadText(strings.NewReader(input), "book")
		if err != nil {
			t.Fatalf("ReadText() error = %v", err)
		}
		wantTOC := []string{"Chapter One", "Chapter Two"}
		if !reflect.DeepEqual(doc.TOC, wantTOC) {
			t.Errorf("TOC = %q", doc.TOC)
		}
		want := []string{"Some front matter.", "# Chapter One\nAnn left.", "# Chapter Two\nShe arrived."}
		if !reflect.DeepEqual(doc.Chapters, want) {
			t.Errorf("Chapters = %q, want %q", doc.Chapters, want)
		}
	})

	t.Run("plain chapter lines", func(t *testing.T) {
		input := "CHAPTER I\r\nIt began.\r\nChapter 2. The Storm\r\nWind.\r\nchapterhouse is not a heading\r\n"
		doc, err := ReadText(strings.NewReader(input), "")
		if err != nil {
			t.Fatalf("ReadText() error = %v", err)
		}
		if len(doc.Chapters) != 2 {
			t.Fatalf("Chapters = %q", doc.Chapters)
		}
		if doc.TOC[1] != "Chapter 2. The Storm" {
			t.Errorf("TOC = %q", doc.TOC)
		}
		if !strings.HasSuffix(doc.Chapters[1], "chapterhouse is not a heading") {
			t.Errorf("chapter 2 = %q", doc.Chapters[1])
		}
	})

	t.Run("no headings", func(t *testing.T) {
		doc, err := ReadText(strings.NewReader("just text\nmore text"), "t")
		if err != nil {
			t.Fatalf("ReadText() error = %v", err)
		}
		if len(doc.Chapters) != 1 || len(doc.TOC) != 0 {
			t.Errorf("unexpected document: %+v", doc)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := ReadText(strings.NewReader("  \n\n"), "t"); !errors.Is(err, ErrNoChapters) {
			t.Errorf("expected ErrNoChapters, got %v", err)
		}
	})
}

func TestOpen_UnsupportedFormat(t *testing.T) {
	if _, err := Open("book.pdf"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestOpen_TextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes-2.md")
	if err := os.WriteFile(path, []byte("# One\na\n# Two\nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if doc.Title != "notes" || len(doc.Chapters) != 2 {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestTitleFromPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/path/to/the-long-road.epub", "the-long-road"},
		{"/path/to/my-book-1.epub", "my-book"},
		{"notes_10.txt", "notes"},
		{"simple.md", "simple"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := TitleFromPath(tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	got, err := extractText(strings.NewReader(`<html><body><p>a<br/>b</p><ul><li>one</li><li>two</li></ul></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	if got != "a\n\nb\n\none\n\ntwo" {
		t.Errorf("extractText() = %q", got)
	}
}

func TestNavTitles(t *testing.T) {
	nav := `<html xmlns:epub="http://www.idpf.org/2007/ops"><body>
<nav epub:type="landmarks"><ol><li><a href="x">Cover</a></li></ol></nav>
<nav epub:type="toc"><ol>
  <li><a href="c1.xhtml">Chapter  One</a><ol><li><a href="c1.xhtml#s">Scene</a></li></ol></li>
  <li><a href="c2.xhtml">Chapter Two</a></li>
</ol></nav></body></html>`
	got, err := navTitles(strings.NewReader(nav))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Chapter One", "Scene", "Chapter Two"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("navTitles() = %q, want %q", got, want)
	}
}
