package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mastohuman/internal/llm"
)

var (
	forceLLM     bool
	summarizeMax int
)

// summarizeCmd generates per-person summaries for recently synced accounts.
var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate LLM summaries for recently synced accounts",
	Long: `Builds a person document from each account's recent original posts and
asks the configured LLM provider for a headline and blurb. Documents whose
content hash is unchanged keep their cached summary unless --force-llm is
given. Provider failures store a fallback summary rather than failing the
run.`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().BoolVar(&forceLLM, "force-llm", false, "Regenerate summaries even when cached")
	summarizeCmd.Flags().IntVar(&summarizeMax, "limit", 0, "Max accounts to summarize (0 = all)")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := llm.NewClientFromConfig(cfg)
	if err != nil {
		return err
	}
	if client == nil {
		logger.Warn("LLM provider is 'none'; existing summaries are kept as-is")
	} else {
		logger.Info("Summarizing",
			zap.String("provider", client.Provider()),
			zap.String("model", client.Model()),
			zap.Bool("force", forceLLM))
	}

	if err := llm.NewSummarizer(st, client, cfg).ProcessAll(ctx, forceLLM, summarizeMax); err != nil {
		return err
	}

	logger.Info("Summarize complete")
	return nil
}
