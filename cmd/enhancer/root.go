package main

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "enhancer",
	Short:   "Prompt enhancement service",
	Long:    `An HTTP service that rewrites rough prompt drafts into richer prompts, either through an external script or a browser-driven Gemini session.`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
