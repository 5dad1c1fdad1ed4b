package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zkir/zkir-prover/internal/zkir/machine"
	"github.com/zkir/zkir-prover/internal/zkir/trace"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "zkir-prover",
	Short: "Arithmetization toolbox for ZK IR execution traces.",
	Long: `Arithmetization toolbox for ZK IR execution traces.
	Traces are given as JSON files produced by the ZK IR virtual machine.`,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] trace_file",
	Short: "Summarize an execution trace.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		if getFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}

		t := readTraceFile(args[0])

		key, err := t.ContentKey()
		if err != nil {
			log.Fatalf("content key: %v", err)
		}

		fmt.Printf("program hash:    %x\n", t.ProgramHash)
		fmt.Printf("content key:     %x\n", key)
		fmt.Printf("cycles:          %d\n", t.NumCycles())
		fmt.Printf("steps:           %d\n", len(t.Steps))
		fmt.Printf("memory accesses: %d\n", len(t.MemoryLog))
		fmt.Printf("syscalls:        %d\n", len(t.Syscalls))

		byCode := make(map[trace.SyscallCode]int)
		for _, s := range t.Syscalls {
			byCode[trace.SyscallCode(s.Code)]++
		}
		for code, n := range byCode {
			fmt.Printf("  %-14s %d\n", code, n)
		}
	},
}

var witnessCmd = &cobra.Command{
	Use:   "witness [flags] trace_file",
	Short: "Generate the chip witness matrices for a trace.",
	Long: `Generate the chip witness matrices for a trace.
	Each chip of the machine produces one matrix; heights are padded to
	powers of two. With --check the matrices are also verified against
	their chips' constraints.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		if getFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}

		t := readTraceFile(args[0])
		m := machine.New()
		witnesses := m.GenerateAll(t)

		fmt.Printf("%-12s %8s %8s\n", "chip", "width", "height")
		for _, w := range witnesses {
			fmt.Printf("%-12s %8d %8d\n", w.Chip.Name(), w.Matrix.Width(), w.Matrix.Height())
		}

		if getFlag(cmd, "check") {
			if err := m.CheckAll(witnesses); err != nil {
				log.Fatalf("check failed: %v", err)
			}
			fmt.Println("all constraints satisfied")
		}
	},
}

// readTraceFile loads a trace or exits with a diagnostic.
func readTraceFile(path string) *trace.ExecutionTrace {
	t, err := trace.Load(path)
	if err != nil {
		log.Fatalf("reading trace: %v", err)
	}

	return t
}

// getFlag extracts a boolean flag, panicking on a misconfigured name.
func getFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(err)
	}

	return v
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	witnessCmd.Flags().Bool("check", false, "verify witnesses against the chip constraints")
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(witnessCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
