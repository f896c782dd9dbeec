// Package cli implements the interactive prediction prompt.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"slopefs/ml"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrTooManyAttempts is returned when MaxAttempts parse failures occur in a row.
var ErrTooManyAttempts = errors.New("too many invalid attempts")

// Prompter asks for the seven parameters one by one. Any unparsable value
// restarts the whole set.
type Prompter struct {
	in      *bufio.Scanner
	out     io.Writer
	printer *message.Printer
	// MaxAttempts bounds the number of full passes; zero means unbounded.
	MaxAttempts int
}

func NewPrompter(in io.Reader, out io.Writer, lang string) *Prompter {
	return &Prompter{
		in:      bufio.NewScanner(in),
		out:     out,
		printer: message.NewPrinter(MatchLanguage(lang)),
	}
}

// MatchLanguage picks the closest supported language, English by default.
func MatchLanguage(lang string) language.Tag {
	if lang == "" {
		return language.English
	}
	tag, _, _ := matcher.Match(language.Make(lang))
	base, _ := tag.Base()
	for _, t := range supported {
		if b, _ := t.Base(); b == base {
			return t
		}
	}
	return language.English
}

// ReadFeatures loops until a full valid set has been entered, the input
// ends, or MaxAttempts is exhausted.
func (p *Prompter) ReadFeatures() (ml.FeatureVector, error) {
	for attempt := 1; ; attempt++ {
		fv, err := p.readOnce()
		if err == nil {
			return fv, nil
		}
		var perr *parseError
		if !errors.As(err, &perr) {
			return ml.FeatureVector{}, err
		}
		p.printer.Fprintf(p.out, msgInvalidNumber, perr.field)
		fmt.Fprintln(p.out)
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return ml.FeatureVector{}, ErrTooManyAttempts
		}
	}
}

type parseError struct {
	field string
	input string
}

func (e *parseError) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.input, e.field)
}

func (p *Prompter) readOnce() (ml.FeatureVector, error) {
	values := make([]float64, 0, ml.FeatureCount)
	for _, f := range ml.Fields() {
		p.printer.Fprintf(p.out, msgEnterField, p.printer.Sprintf(f.Description), f.Name, f.Unit)
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return ml.FeatureVector{}, err
			}
			return ml.FeatureVector{}, io.EOF
		}
		line := strings.TrimSpace(p.in.Text())
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return ml.FeatureVector{}, &parseError{field: f.Name, input: line}
		}
		values = append(values, v)
	}
	fv, err := ml.NewFeatureVector(values)
	if err != nil {
		var ierr *ml.InputError
		if errors.As(err, &ierr) && ierr.Index >= 0 {
			return ml.FeatureVector{}, &parseError{field: ml.FeatureNames()[ierr.Index], input: fmt.Sprint(ierr.Value)}
		}
		return ml.FeatureVector{}, err
	}
	return fv, nil
}

// PrintResult writes the prediction and its verdict.
func (p *Prompter) PrintResult(res ml.Result) {
	p.printer.Fprintf(p.out, msgPredicted, res.FS)
	fmt.Fprintln(p.out)
	p.printer.Fprintf(p.out, msgConclusion, Label(p.printer, res.Conclusion))
	fmt.Fprintln(p.out)
}

// Label renders a classification with its status emoji.
func Label(printer *message.Printer, c ml.Classification) string {
	switch c {
	case ml.Safe:
		return printer.Sprintf(msgSafe)
	case ml.NeedsReview:
		return printer.Sprintf(msgNeedsReview)
	default:
		return printer.Sprintf(msgDangerous)
	}
}

// ParseFeatureList parses "c,l,gamma,h,u,phi,beta" as given on the command line.
func ParseFeatureList(s string) (ml.FeatureVector, error) {
	parts := strings.Split(s, ",")
	values := make([]any, len(parts))
	for i, part := range parts {
		values[i] = strings.TrimSpace(part)
	}
	return ml.ParseFeatures(values)
}
