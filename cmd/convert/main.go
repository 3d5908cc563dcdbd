// convert turns Hanja in its arguments, or in each line of stdin, into Hangul.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/text/unicode/norm"

	"github.com/jusunglee/hanjahangul/internal/client"
	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/db/connect"
	"github.com/jusunglee/hanjahangul/internal/dictionary"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/transliteration"
	"github.com/jusunglee/hanjahangul/internal/tui"
)

func main() {
	if err := mainE(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// converter abstracts the local dictionary and a remote server.
type converter interface {
	Convert(ctx context.Context, text string) (hanja.Result, error)
}

type localConverter struct {
	dict *hanja.Dictionary
}

func (l localConverter) Convert(_ context.Context, text string) (hanja.Result, error) {
	return l.dict.Convert(text), nil
}

type remoteConverter struct {
	client *client.Client
}

func (r remoteConverter) Convert(ctx context.Context, text string) (hanja.Result, error) {
	res, err := r.client.Convert(ctx, text)
	if err != nil {
		return hanja.Unchanged(), err
	}
	if !res.Converted {
		return hanja.Unchanged(), nil
	}
	return hanja.Converted(res.ConvertedText), nil
}

type options struct {
	fallback string
	keep     bool
	nfc      bool
	romanize bool
}

func mainE(args []string, stdin io.Reader, stdout io.Writer) error {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("hanjahangul-convert")
	var (
		fallback         = fs.StringLong("fallback", hanja.FallbackMessage, "Printed when nothing could be converted")
		keep             = fs.BoolLong("keep", "Print unchanged input as is instead of the fallback")
		nfc              = fs.BoolLong("nfc", "Normalize input to NFC before converting")
		romanize         = fs.BoolLong("romanize", "Print the Revised Romanization after each result")
		interactive      = fs.BoolLong("interactive", "Open the live terminal converter")
		remote           = fs.StringLong("remote", "", "Convert through a running web server at this URL")
		databaseURL      = fs.StringLong("database-url", "", "Database for the db dictionary source")
		dictionarySource = fs.StringLong("dictionary-source", "embed", "Dictionary tables: embed, db, or dir:<path>")
		dictionaryEnc    = fs.StringLong("dictionary-encoding", "utf-8", "Encoding of dir: tables (utf-8 or euc-kr)")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVars()); err != nil {
		fmt.Fprintf(stdout, "%s\n", ffhelp.Flags(fs))
		return fmt.Errorf("parsing flags: %w", err)
	}

	opts := options{fallback: *fallback, keep: *keep, nfc: *nfc, romanize: *romanize}
	ctx := context.Background()

	if *remote != "" {
		if *interactive {
			return errors.New("interactive mode needs a local dictionary")
		}
		return run(ctx, remoteConverter{client: client.New(*remote)}, fs.GetArgs(), stdin, stdout, opts)
	}

	src, err := dictionary.ParseSource(*dictionarySource)
	if err != nil {
		return err
	}
	enc, err := hanja.ParseEncoding(*dictionaryEnc)
	if err != nil {
		return err
	}

	var repo db.Repository
	if src.Kind == dictionary.KindDB {
		if *databaseURL == "" {
			return dictionary.ErrNoRepository
		}
		repo, err = connect.Open(ctx, *databaseURL)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer repo.Close()
	}

	slog.SetLogLoggerLevel(slog.LevelWarn)
	dict, err := dictionary.Open(ctx, src, repo, enc)
	if err != nil {
		return err
	}

	if *interactive {
		_, err := tui.Run(dict, opts.fallback, stdin, stdout)
		return err
	}
	return run(ctx, localConverter{dict: dict}, fs.GetArgs(), stdin, stdout, opts)
}

// run converts args joined by spaces, or stdin line by line when there are
// no args.
func run(ctx context.Context, conv converter, args []string, stdin io.Reader, stdout io.Writer, opts options) error {
	w := bufio.NewWriter(stdout)
	defer w.Flush()

	if len(args) > 0 {
		return convertLine(ctx, conv, strings.Join(args, " "), w, opts)
	}

	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	for scanner.Scan() {
		if err := convertLine(ctx, conv, scanner.Text(), w, opts); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	return nil
}

func convertLine(ctx context.Context, conv converter, line string, w io.Writer, opts options) error {
	if opts.nfc {
		line = norm.NFC.String(line)
	}
	result, err := conv.Convert(ctx, line)
	if err != nil {
		return fmt.Errorf("converting %q: %w", line, err)
	}

	out := result.Or(opts.fallback)
	if opts.keep && !result.Converted() {
		out = line
	}
	if _, err := fmt.Fprintln(w, out); err != nil {
		return err
	}
	if opts.romanize {
		if text, ok := result.Value(); ok {
			if _, err := fmt.Fprintln(w, transliteration.Romanize(text)); err != nil {
				return err
			}
		}
	}
	return nil
}
