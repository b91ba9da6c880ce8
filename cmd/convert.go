package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/markuskont/go-dispatch"
	"github.com/markuskont/go-sigma-limacharlie"
	"github.com/markuskont/go-sigma-limacharlie/pkg/limacharlie"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert sigma rules into D&R rules",
	Long: `Recursively parses a sigma ruleset from filesystem and converts every rule
into a LimaCharlie detection & response rule. Rules that cannot be converted are
reported and skipped, they do not affect other rules.

Documents are written to stdout unless --output points to a directory.

	sigma-lc convert --rules-dir ./rules/windows --filter 'windows/*' --format json
	`,
	Run: convert,
}

// conversion is the outcome for a single rule
type conversion struct {
	tree *sigma.Tree
	doc  *limacharlie.Document
	err  error
}

func (c conversion) path() string {
	if c.tree == nil || c.tree.Rule == nil {
		return ""
	}
	return c.tree.Rule.Path
}

func convertTree(tr *limacharlie.Translator, tree *sigma.Tree, validate bool) (*limacharlie.Document, error) {
	doc, err := tr.TranslateTree(tree)
	if err != nil {
		return nil, err
	}
	if validate {
		if err := limacharlie.Validate(doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// convertTrees translates rules on a worker pool, results keep ruleset order
func convertTrees(tr *limacharlie.Translator, trees []*sigma.Tree, workers int, validate bool) ([]conversion, error) {
	out := make([]conversion, len(trees))
	for i, t := range trees {
		out[i].tree = t
	}
	if len(trees) == 0 {
		return out, nil
	}
	if workers < 1 {
		workers = 1
	}
	err := dispatch.Run(dispatch.Config{
		Async:   false,
		Workers: workers,
		FeederFunc: func(tasks chan<- dispatch.Task, stop <-chan struct{}) {
			var wg sync.WaitGroup
		loop:
			for i := range out {
				c := &out[i]
				wg.Add(1)
				task := func(id, count int, ctx context.Context) error {
					defer wg.Done()
					c.doc, c.err = convertTree(tr, c.tree, validate)
					return nil
				}
				select {
				case tasks <- task:
				case <-stop:
					wg.Done()
					break loop
				}
			}
			wg.Wait()
		},
		ErrFunc: func(err error) bool {
			logrus.Error(err)
			return true
		},
	})
	return out, err
}

// failureKind groups conversion errors for the summary
func failureKind(err error) string {
	var (
		logSource limacharlie.ErrUnsupportedLogSource
		field     limacharlie.ErrUnsupportedField
		keyword   limacharlie.ErrUnsupportedKeywordSearch
		negation  limacharlie.ErrUnsupportedNegation
		value     limacharlie.ErrUnsupportedValueType
		selection limacharlie.ErrMalformedSelection
		regex     limacharlie.ErrInvalidRegex
		document  limacharlie.ErrInvalidDocument
		title     limacharlie.ErrMissingTitle
	)
	switch {
	case errors.As(err, &logSource):
		return "unsupported log source"
	case errors.As(err, &field):
		return "unsupported field"
	case errors.As(err, &keyword):
		return "unsupported keyword search"
	case errors.As(err, &negation):
		return "unsupported negation"
	case errors.As(err, &value):
		return "unsupported value"
	case errors.As(err, &selection):
		return "malformed selection"
	case errors.As(err, &regex):
		return "invalid regex"
	case errors.As(err, &document):
		return "invalid document"
	case errors.As(err, &title):
		return "missing title"
	default:
		return "other"
	}
}

// outputNames derives unique file names from rule paths
func outputNames(results []conversion, f limacharlie.Format) []string {
	seen := make(map[string]int)
	names := make([]string, len(results))
	for i, c := range results {
		base := filepath.Base(c.path())
		base = strings.TrimSuffix(base, filepath.Ext(base))
		if base == "" || base == "." {
			base = "rule"
		}
		if n := seen[base]; n > 0 {
			names[i] = fmt.Sprintf("%s-%d.%s", base, n, f)
		} else {
			names[i] = fmt.Sprintf("%s.%s", base, f)
		}
		seen[base]++
	}
	return names
}

func writeFile(path string, doc *limacharlie.Document, f limacharlie.Format) error {
	handle, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := limacharlie.Encode(handle, doc, f); err != nil {
		handle.Close()
		return err
	}
	return handle.Close()
}

// writeResults emits converted documents, either into a stream or one file per rule
func writeResults(w io.Writer, dir string, results []conversion, f limacharlie.Format) (int, error) {
	var written int
	names := outputNames(results, f)
	for i, c := range results {
		if c.doc == nil {
			continue
		}
		var err error
		if dir != "" {
			err = writeFile(filepath.Join(dir, names[i]), c.doc, f)
		} else {
			err = limacharlie.Encode(w, c.doc, f)
		}
		if err != nil {
			return written, fmt.Errorf("writing %s: %w", c.path(), err)
		}
		written++
	}
	return written, nil
}

func summarize(w io.Writer, ruleset *sigma.Ruleset, results []conversion) {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, c := range results {
		if c.err == nil {
			continue
		}
		kind := failureKind(c.err)
		if counts[kind] == 0 {
			order = append(order, kind)
		}
		counts[kind]++
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Stage", "Result", "Rules"})
	tbl.AppendRow(table.Row{"parse", "failed", ruleset.Failed})
	tbl.AppendRow(table.Row{"parse", "unsupported", ruleset.Unsupported})
	for _, kind := range order {
		tbl.AppendRow(table.Row{"convert", kind, counts[kind]})
	}
	tbl.AppendRow(table.Row{"convert", "ok", len(results) - sumCounts(counts)})
	tbl.AppendFooter(table.Row{"", "Total", ruleset.Total})
	tbl.Render()
}

func sumCounts(counts map[string]int) int {
	var sum int
	for _, v := range counts {
		sum += v
	}
	return sum
}

func convert(cmd *cobra.Command, args []string) {
	format, err := limacharlie.ParseFormat(viper.GetString("convert.format"))
	if err != nil {
		logrus.Fatal(err)
	}
	dir := viper.GetString("convert.output")
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logrus.Fatal(err)
		}
	}
	failFast := viper.GetBool("convert.fail-fast")

	ruleset, err := sigma.NewRuleset(rulesetConfig(failFast))
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.Infof("Found %d files, %d ok, %d failed, %d unsupported",
		ruleset.Total, ruleset.Ok, ruleset.Failed, ruleset.Unsupported)
	for _, err := range ruleset.Failures {
		logrus.Warn(err)
	}

	reg := filterRegistry(limacharlie.DefaultRegistry(), viper.GetStringSlice("convert.filter"))
	if len(reg) == 0 {
		logrus.Fatalf("no dialects match filter %v", viper.GetStringSlice("convert.filter"))
	}
	tr := limacharlie.NewTranslator(reg)

	results, err := convertTrees(tr, ruleset.Rules, viper.GetInt("convert.workers"), viper.GetBool("convert.validate"))
	if err != nil {
		logrus.Fatal(err)
	}
	for _, c := range results {
		if c.err == nil {
			logrus.Debugf("%s: ok", c.path())
			continue
		}
		entry := logrus.WithFields(logrus.Fields{
			"file":  c.path(),
			"title": c.tree.Rule.Title,
			"kind":  failureKind(c.err),
		})
		if failFast {
			entry.Fatal(c.err)
		}
		entry.Warn(c.err)
	}

	written, err := writeResults(os.Stdout, dir, results, format)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.Infof("Wrote %d documents", written)
	summarize(os.Stderr, ruleset, results)
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.PersistentFlags().StringP("output", "o", "",
		`Directory for converted rules, one file per rule. Stdout is used when empty.`)
	viper.BindPFlag("convert.output",
		convertCmd.PersistentFlags().Lookup("output"))

	convertCmd.PersistentFlags().StringP("format", "f", string(limacharlie.FormatYAML),
		`Output format, yaml or json.`)
	viper.BindPFlag("convert.format",
		convertCmd.PersistentFlags().Lookup("format"))

	convertCmd.PersistentFlags().Bool("validate", true,
		`Validate converted documents against D&R rule structure.`)
	viper.BindPFlag("convert.validate",
		convertCmd.PersistentFlags().Lookup("validate"))

	convertCmd.PersistentFlags().Bool("fail-fast", false,
		`Exit on first rule that cannot be parsed or converted.`)
	viper.BindPFlag("convert.fail-fast",
		convertCmd.PersistentFlags().Lookup("fail-fast"))

	convertCmd.PersistentFlags().Int("workers", 4,
		`Number of workers for rule conversion.`)
	viper.BindPFlag("convert.workers",
		convertCmd.PersistentFlags().Lookup("workers"))
}
