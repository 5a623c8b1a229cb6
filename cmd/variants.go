package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/harvest-cli/internal/attempt"
	"github.com/sells-group/harvest-cli/internal/config"
	"github.com/sells-group/harvest-cli/internal/harvest"
)

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List the harvest variants and their effective settings",
	RunE: func(_ *cobra.Command, _ []string) error {
		s, err := newSite(cfg)
		if err != nil {
			return err
		}
		formatVariants(os.Stdout, newRegistry(s), cfg)
		return nil
	},
}

func formatVariants(out io.Writer, reg *harvest.Registry, c *config.Config) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tKIND\tNAMING\tINCLUDE\tEXCLUDE\tPROMPT")
	for _, v := range reg.All() {
		p := v.Profile()
		vc := c.Variant(v.Name())
		naming := p.Naming
		if vc.Naming != "" {
			naming = vc.Naming
		}
		include, exclude := p.Include, p.Exclude
		if vc.Include != nil {
			include = vc.Include
		}
		if vc.Exclude != nil {
			exclude = vc.Exclude
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.Name(), p.Kind, naming, listOrDash(include), listOrDash(exclude), promptName(p))
	}
	_ = w.Flush()
}

func promptName(p harvest.Profile) string {
	if p.Prompt == attempt.PromptFailFast {
		return "fail-fast"
	}
	return "replay-once"
}

func listOrDash(xs []string) string {
	if len(xs) == 0 {
		return "-"
	}
	return strings.Join(xs, ",")
}

func init() {
	rootCmd.AddCommand(variantsCmd)
}
