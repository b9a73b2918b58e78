package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Manu343726/elfscope/pkg/callgraph"
	"github.com/Manu343726/elfscope/pkg/image"
	"github.com/Manu343726/elfscope/pkg/report"
	"github.com/Manu343726/elfscope/pkg/stackanalyzer"
	"github.com/Manu343726/elfscope/pkg/utils"
)

var (
	outputJSON   bool
	functionName string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <elf-file>",
	Short: "Analyze an ELF file's call graph and stack depth",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&outputJSON, "json", false, "emit the full report as JSON instead of a text summary")
	analyzeCmd.Flags().StringVar(&functionName, "function", "", "restrict the text summary to one function")
}

func runAnalyze(_ *cobra.Command, args []string) error {
	path := args[0]

	img, err := image.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer img.Close()

	g, err := callgraph.Build(img, logger)
	if err != nil {
		return fmt.Errorf("building call graph: %w", err)
	}

	sa, err := stackanalyzer.New(img, g, stackanalyzer.Config{
		RecursionMultiplier: cfg.Stack.RecursionMultiplier,
		ExternalCostsFile:   cfg.Stack.ExternalCostsFile,
	}, logger)
	if err != nil {
		return fmt.Errorf("building stack analyzer: %w", err)
	}

	if outputJSON {
		r, err := report.Build(path, img, g, sa, "dev")
		if err != nil {
			return fmt.Errorf("building report: %w", err)
		}
		data, err := report.Marshal(r)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	return printTextSummary(img, g, sa)
}

func printTextSummary(img *image.Image, g *callgraph.Graph, sa *stackanalyzer.Analyzer) error {
	fi := img.FileInfo()
	bold := color.New(color.Bold)
	bold.Fprintf(os.Stdout, "%s (%s, %s)\n", fi.FileType, fi.Architecture, fi.Class)
	fmt.Printf("  functions: %d   sections: %d   stripped: %v\n", fi.FunctionCount, fi.SectionCount, fi.IsStripped)

	names := g.Nodes()
	if functionName != "" {
		names = []string{functionName}
	}

	for _, name := range names {
		node, ok := g.Node(name)
		if !ok || node.External {
			continue
		}
		info, err := sa.FunctionStackInfo(name)
		if err != nil {
			color.Red("  %s: stack analysis failed: %v\n", name, err)
			continue
		}
		fmt.Printf("  %-30s local=%-6d max_total=%-6d callees=%d\n",
			name, info.LocalFrame, info.MaxTotal, g.OutDegree(name))
		if functionName != "" && len(info.WitnessPath) > 0 {
			fmt.Printf("    witness: %s\n", utils.FormatSlice(info.WitnessPath, " -> "))
		}
	}

	return nil
}
