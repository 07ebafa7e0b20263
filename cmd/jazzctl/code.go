package main

import (
	"fmt"
	"io"

	"jazz_picker_backend/internal/jazzslug"

	"github.com/spf13/cobra"
)

var codeCount int

var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Generate and check band invite codes",
}

var codeGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print new band codes",
	Args:  cobra.NoArgs,
	RunE:  runCodeGenerate,
}

var codeValidateCmd = &cobra.Command{
	Use:   "validate <code>",
	Short: "Check that a code has the three-word form",
	Args:  cobra.ExactArgs(1),
	RunE:  runCodeValidate,
}

func init() {
	codeGenerateCmd.Flags().IntVarP(&codeCount, "count", "n", 1, "How many codes to print")
	codeCmd.AddCommand(codeGenerateCmd, codeValidateCmd)
}

func runCodeGenerate(cmd *cobra.Command, args []string) error {
	if codeCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	codes := make([]string, codeCount)
	for i := range codes {
		codes[i] = jazzslug.Generate()
	}
	return render(cmd.OutOrStdout(), outputFormat, codes, func(w io.Writer) {
		for _, c := range codes {
			fmt.Fprintln(w, c)
		}
	})
}

type codeCheck struct {
	Code       string `json:"code" yaml:"code"`
	Normalized string `json:"normalized" yaml:"normalized"`
	Valid      bool   `json:"valid" yaml:"valid"`
}

func runCodeValidate(cmd *cobra.Command, args []string) error {
	normalized := jazzslug.Normalize(args[0])
	res := codeCheck{
		Code:       args[0],
		Normalized: normalized,
		Valid:      jazzslug.IsValid(normalized),
	}
	if err := render(cmd.OutOrStdout(), outputFormat, res, func(w io.Writer) {
		if res.Valid {
			fmt.Fprintf(w, "%s is a valid band code\n", res.Normalized)
		} else {
			fmt.Fprintf(w, "%s is not a valid band code (expected word-word-word)\n", res.Code)
		}
	}); err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("invalid band code")
	}
	return nil
}
