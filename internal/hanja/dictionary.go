package hanja

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Table names a dictionary table.
type Table string

const (
	TableChars    Table = "chars"
	TableInitials Table = "initials"
	TableWords    Table = "words"
)

// Tables lists every table in load order.
var Tables = []Table{TableChars, TableInitials, TableWords}

// Default file names of the three tables inside a dictionary directory.
const (
	CharsFile    = "hanja.txt"
	InitialsFile = "dueum.txt"
	WordsFile    = "irregular.txt"
)

// FileName returns the default file name for t.
func (t Table) FileName() string {
	switch t {
	case TableChars:
		return CharsFile
	case TableInitials:
		return InitialsFile
	case TableWords:
		return WordsFile
	default:
		return ""
	}
}

// ParseTable validates a table name.
func ParseTable(s string) (Table, error) {
	switch t := Table(strings.ToLower(strings.TrimSpace(s))); t {
	case TableChars, TableInitials, TableWords:
		return t, nil
	}
	return "", fmt.Errorf("unknown dictionary table %q", s)
}

// Entry is one key/value line of a dictionary table.
type Entry struct {
	Key   string
	Value string
}

// Dictionary holds the three lookup tables. It is never modified after
// construction and is safe for concurrent use.
type Dictionary struct {
	chars    map[rune]rune
	initials map[rune]rune
	words    map[string]string

	// longest word key in runes; runs longer than this cannot match
	maxWordLen int
}

// Stats holds per-table entry counts.
type Stats struct {
	Chars    int `json:"chars"`
	Initials int `json:"initials"`
	Words    int `json:"words"`
}

func (s Stats) Count(t Table) int {
	switch t {
	case TableChars:
		return s.Chars
	case TableInitials:
		return s.Initials
	case TableWords:
		return s.Words
	default:
		return 0
	}
}

func (d *Dictionary) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{Chars: len(d.chars), Initials: len(d.initials), Words: len(d.words)}
}

// ParseEntries reads a line-oriented `key,value` table. Lines that do not
// split into exactly two non-empty fields are skipped. Only read errors are
// returned.
func ParseEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	br := bufio.NewReader(r)
	first := true
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading dictionary table: %w", err)
		}
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			if first {
				line = strings.TrimPrefix(line, "\ufeff")
				first = false
			}
			if entry, ok := parseLine(line); ok {
				entries = append(entries, entry)
			}
		}
		if err != nil {
			return entries, nil
		}
	}
}

func parseLine(line string) (Entry, bool) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return Entry{}, false
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	if key == "" || value == "" {
		return Entry{}, false
	}
	return Entry{Key: key, Value: value}, true
}

// Build assembles a Dictionary from parsed entries. Character tables keep
// only the first rune of each key and value; entries whose fields are empty
// are dropped. Later entries overwrite earlier ones.
func Build(chars, initials, words []Entry) *Dictionary {
	d := &Dictionary{
		chars:    runeMap(chars),
		initials: runeMap(initials),
		words:    make(map[string]string, len(words)),
	}
	for _, e := range words {
		key := strings.TrimSpace(e.Key)
		value := strings.TrimSpace(e.Value)
		if key == "" || value == "" {
			continue
		}
		d.words[key] = value
		if n := utf8.RuneCountInString(key); n > d.maxWordLen {
			d.maxWordLen = n
		}
	}
	return d
}

func runeMap(entries []Entry) map[rune]rune {
	m := make(map[rune]rune, len(entries))
	for _, e := range entries {
		k, ok := firstRune(e.Key)
		if !ok {
			continue
		}
		v, ok := firstRune(e.Value)
		if !ok {
			continue
		}
		m[k] = v
	}
	return m
}

func firstRune(s string) (rune, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, true
}

// Load parses the three raw tables.
func Load(chars, initials, words io.Reader) (*Dictionary, error) {
	c, err := ParseEntries(chars)
	if err != nil {
		return nil, fmt.Errorf("loading %s table: %w", TableChars, err)
	}
	i, err := ParseEntries(initials)
	if err != nil {
		return nil, fmt.Errorf("loading %s table: %w", TableInitials, err)
	}
	w, err := ParseEntries(words)
	if err != nil {
		return nil, fmt.Errorf("loading %s table: %w", TableWords, err)
	}
	return Build(c, i, w), nil
}

// Encoding of a table source.
type Encoding string

const (
	EncodingUTF8  Encoding = "utf-8"
	EncodingEUCKR Encoding = "euc-kr"
)

// ParseEncoding accepts the common spellings of the supported encodings.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf8", "utf-8":
		return EncodingUTF8, nil
	case "euc-kr", "euckr", "euc_kr", "cp949":
		return EncodingEUCKR, nil
	}
	return "", fmt.Errorf("unsupported encoding %q", s)
}

// Decode wraps r so that it yields UTF-8.
func (e Encoding) Decode(r io.Reader) io.Reader {
	if e == EncodingEUCKR {
		return transform.NewReader(r, korean.EUCKR.NewDecoder())
	}
	return r
}

// LoadOptions configures LoadFS.
type LoadOptions struct {
	// Dir is the directory inside the file system holding the tables.
	Dir      string
	Encoding Encoding
}

// ReadTableFS opens and parses a single table from fsys.
func ReadTableFS(fsys fs.FS, t Table, opts LoadOptions) ([]Entry, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	name := path.Join(dir, t.FileName())
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s table: %w", t, err)
	}
	defer f.Close()

	entries, err := ParseEntries(opts.Encoding.Decode(f))
	if err != nil {
		return nil, fmt.Errorf("loading %s table: %w", t, err)
	}
	return entries, nil
}

// LoadFS reads hanja.txt, dueum.txt and irregular.txt from fsys.
func LoadFS(fsys fs.FS, opts LoadOptions) (*Dictionary, error) {
	tables := make(map[Table][]Entry, len(Tables))
	var errs []error
	for _, t := range Tables {
		entries, err := ReadTableFS(fsys, t, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tables[t] = entries
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return Build(tables[TableChars], tables[TableInitials], tables[TableWords]), nil
}
