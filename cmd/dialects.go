package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/markuskont/go-sigma-limacharlie/pkg/limacharlie"
	"github.com/ryanuber/go-glob"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List supported sigma log sources",
	Long: `Lists log source dialects, keyed by product/category/service, together
with the LimaCharlie parameters and precondition they translate into.
Rules with a service fall back to the dialect without service.`,
	Run: dialects,
}

// filterRegistry keeps dialects with keys matching at least one glob pattern
func filterRegistry(r limacharlie.Registry, patterns []string) limacharlie.Registry {
	if len(patterns) == 0 {
		return r
	}
	out := make(limacharlie.Registry)
	for key, ctx := range r {
		for _, p := range patterns {
			if glob.Glob(p, key) {
				out[key] = ctx
				break
			}
		}
	}
	return out
}

func formatParams(p limacharlie.Params) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(out, " ")
}

func dialects(cmd *cobra.Command, args []string) {
	reg := filterRegistry(limacharlie.DefaultRegistry(), viper.GetStringSlice("convert.filter"))

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Log source", "Params", "Precondition", "Fields", "Keywords", "Strings"})
	for _, key := range reg.Keys() {
		ctx := reg[key]
		pre := "-"
		if ctx.Precondition != nil {
			pre = string(ctx.Precondition.Op)
		}
		fields := "table"
		if ctx.FieldMapping.IsComputed() {
			fields = "computed"
		}
		tbl.AppendRow(table.Row{
			key,
			formatParams(ctx.TopLevelParams),
			pre,
			fields,
			ctx.KeywordsSupported,
			ctx.AllValuesAreStrings,
		})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(reg))})
	tbl.Render()
}

func init() {
	rootCmd.AddCommand(dialectsCmd)
}
