package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gatekeep-net/gatekeep/internal/app/filter"
	"github.com/gatekeep-net/gatekeep/internal/domain"
	"github.com/gatekeep-net/gatekeep/internal/host"
)

var ruleKind string

func init() {
	rulesAddCmd.Flags().StringVarP(&ruleKind, "kind", "k", filter.KindSubstring, "rule kind: substring or regex")
	rulesCmd.AddCommand(rulesAddCmd, rulesListCmd, rulesRmCmd)
	rootCmd.AddCommand(rulesCmd)
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage user rule filters",
	Long:  `Rule filters are evaluated before the model and always win over it.`,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add PATTERN CATEGORY",
	Short: "Add a rule filter",
	Args:  cobra.ExactArgs(2),
	RunE:  runRulesAdd,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active rule filters",
	Args:  cobra.NoArgs,
	RunE:  runRulesList,
}

var rulesRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a rule filter",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesRm,
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	category, err := parseCategory(args[1])
	if err != nil {
		return err
	}
	if ruleKind != filter.KindSubstring && ruleKind != filter.KindRegex {
		return fmt.Errorf("unknown rule kind %q", ruleKind)
	}

	h, err := host.New(nil)
	if err != nil {
		return err
	}
	defer h.Close()

	id, err := h.DB.AddRule(ruleKind, args[0], category)
	if err != nil {
		return err
	}
	fmt.Printf("Added rule %d\n", id)
	return nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	h, err := host.New(nil)
	if err != nil {
		return err
	}
	defer h.Close()

	rules, err := h.DB.ListRules()
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fmt.Println("No rules configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tCATEGORY\tPATTERN")
	for _, r := range rules {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Kind, r.Category, r.Pattern)
	}
	return w.Flush()
}

func runRulesRm(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rule id %q", args[0])
	}

	h, err := host.New(nil)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.DB.DeleteRule(id); err != nil {
		return err
	}
	fmt.Printf("Deleted rule %d\n", id)
	return nil
}

func parseCategory(s string) (domain.Category, error) {
	switch domain.Category(s) {
	case domain.CategorySpam, domain.CategoryAbuse, domain.CategorySexual, domain.CategoryScam:
		return domain.Category(s), nil
	default:
		return "", fmt.Errorf("unknown category %q (spam, abuse, sexual, scam)", s)
	}
}
