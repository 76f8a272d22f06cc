package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "storycut <url>",
		Short:        "Turn a long-form video into narrated vertical shorts",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.Flags().String("workdir", "work", "Work directory for projects")
	root.Flags().Int("clips", 0, "Max number of clips (0 = no limit)")
	root.Flags().String("template", "", "Force one template for every clip")
	root.Flags().Bool("story", false, "Compose 3-act story cuts")
	root.Flags().Bool("publish", false, "Publish finished clips")
	root.Flags().String("project", "", "Resume an existing project id")

	// Hidden tuning flags (internal)
	root.Flags().String("templates-file", "", "YAML template overrides")
	root.Flags().Float64("silence-gap", 0, "Min silence gap to remove, seconds")
	_ = root.Flags().MarkHidden("templates-file")
	_ = root.Flags().MarkHidden("silence-gap")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
