package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luqian/astock-screener/internal/gateway"
)

var fieldCmd = &cobra.Command{
	Use:   "field",
	Short: "Look up catalog fields by their Chinese display name",
}

var fieldFindCmd = &cobra.Command{
	Use:   "find <名称>",
	Short: "Find the first dataset carrying a field",
	Args:  cobra.ExactArgs(1),
	RunE:  runFieldFind,
}

var fieldAllCmd = &cobra.Command{
	Use:   "all <名称>",
	Short: "List every dataset carrying a field",
	Args:  cobra.ExactArgs(1),
	RunE:  runFieldAll,
}

var fieldSearchCmd = &cobra.Command{
	Use:   "search <关键字>",
	Short: "Fuzzy-search field display names",
	Args:  cobra.ExactArgs(1),
	RunE:  runFieldSearch,
}

var fieldGetCmd = &cobra.Command{
	Use:   "get <名称>",
	Short: "Fetch a field's values for a trading date",
	Args:  cobra.ExactArgs(1),
	RunE:  runFieldGet,
}

func init() {
	rootCmd.AddCommand(fieldCmd)
	fieldCmd.AddCommand(fieldFindCmd, fieldAllCmd, fieldSearchCmd, fieldGetCmd)
	fieldGetCmd.Flags().StringVar(&tradeDate, "date", "", "trading date (YYYYMMDD), defaults to the last one")
}

func runFieldFind(cmd *cobra.Command, args []string) error {
	a, err := newApp("field")
	if err != nil {
		return err
	}
	ref, ok := a.gw.FindField(args[0])
	if !ok {
		return fmt.Errorf("no catalog field named %q", args[0])
	}
	printFieldRefs(cmd, []gateway.FieldRef{ref})
	return nil
}

func runFieldAll(cmd *cobra.Command, args []string) error {
	a, err := newApp("field")
	if err != nil {
		return err
	}
	refs := a.gw.FindAllFields(args[0])
	if len(refs) == 0 {
		return fmt.Errorf("no catalog field named %q", args[0])
	}
	printFieldRefs(cmd, refs)
	return nil
}

func runFieldSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp("field")
	if err != nil {
		return err
	}
	refs := a.gw.FuzzyFindFields(args[0])
	if len(refs) == 0 {
		return fmt.Errorf("no catalog field matching %q", args[0])
	}
	printFieldRefs(cmd, refs)
	return nil
}

func runFieldGet(cmd *cobra.Command, args []string) error {
	a, err := newApp("field")
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	date, err := a.resolveDate(ctx, tradeDate)
	if err != nil {
		return a.finish(ctx, err)
	}
	t, err := a.data.ColumnByName(ctx, args[0], date)
	if err != nil {
		return a.finish(ctx, err)
	}
	cmd.Println(strings.Join(t.Columns, ","))
	for _, row := range t.Rows {
		vals := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			vals[i] = row[col]
		}
		cmd.Println(strings.Join(vals, ","))
	}
	return nil
}

func printFieldRefs(cmd *cobra.Command, refs []gateway.FieldRef) {
	for _, ref := range refs {
		cmd.Printf("%s\t%s\t%s\n", ref.API, ref.Field, ref.Zh)
	}
}
