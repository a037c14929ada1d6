package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/persona-backend/internal/app"
	"github.com/yungbote/persona-backend/internal/config"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/orchestrator"
	"github.com/yungbote/persona-backend/internal/platform/logger"
	"github.com/yungbote/persona-backend/internal/platform/shutdown"
)

var (
	version    = "dev"
	jsonOutput bool
	sessionID  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "personactl",
		Short: "Run persona analyses from the command line",
		Long: `personactl runs the same provider chains as the HTTP service against
local files, using the service configuration (PERSONA_CONFIG_PATH and env).`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "cli", "Session the analysis is stored under")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{"version": version})
				return
			}
			fmt.Printf("personactl %s\n", version)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "providers",
		Short: "List wired providers and whether they have credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wire(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			statuses := a.Orchestrator.Providers()
			if jsonOutput {
				printJSON(statuses)
				return nil
			}
			for _, st := range statuses {
				mark := "-"
				if st.Configured {
					mark = "+"
				}
				fmt.Printf("%s %-14s %-16s %s\n", mark, st.Capability, st.ID, st.Breaker)
			}
			return nil
		},
	})

	var (
		mediaType       string
		segmentStart    float64
		segmentDuration float64
		maxPeople       int
	)
	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze an image, video, text or document file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			a, err := wire(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.Orchestrator
			var out *orchestrator.Outcome
			switch kind := inputKind(path, mediaType); kind {
			case domain.MediaText:
				out, err = svc.AnalyzeText(cmd.Context(), orchestrator.TextRequest{SessionID: sessionID, Text: string(data)})
			case domain.MediaDocument:
				out, err = svc.AnalyzeDocument(cmd.Context(), orchestrator.DocumentRequest{SessionID: sessionID, Data: data, FileName: filepath.Base(path)})
			default:
				out, err = svc.AnalyzeMedia(cmd.Context(), orchestrator.MediaRequest{
					SessionID:          sessionID,
					Data:               data,
					MediaType:          kind,
					SegmentStartSec:    segmentStart,
					SegmentDurationSec: segmentDuration,
					MaxPeople:          maxPeople,
				})
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(out)
				return nil
			}
			printOutcome(out)
			return nil
		},
	}
	analyzeCmd.Flags().StringVar(&mediaType, "type", "", "Force image, video, text or document")
	analyzeCmd.Flags().Float64Var(&segmentStart, "start", 0, "Video segment start in seconds")
	analyzeCmd.Flags().Float64Var(&segmentDuration, "duration", 0, "Video segment length in seconds")
	analyzeCmd.Flags().IntVar(&maxPeople, "max-people", 0, "Maximum people to assess")
	rootCmd.AddCommand(analyzeCmd)

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if jsonOutput {
			printJSON(map[string]any{"ok": false, "error": err.Error()})
		}
		stop()
		os.Exit(1)
	}
}

func wire(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// Keep stdout clean for --json.
	return app.Wire(ctx, logger.Nop(), cfg)
}

// inputKind picks the pipeline from the flag, then the file extension. Unknown extensions go to
// the media path, which sniffs the bytes.
func inputKind(path, forced string) domain.MediaType {
	if forced != "" {
		return domain.MediaType(strings.ToLower(forced))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return domain.MediaText
	case ".pdf", ".docx", ".html", ".htm", ".rtf":
		return domain.MediaDocument
	}
	return ""
}

func printOutcome(out *orchestrator.Outcome) {
	fmt.Printf("analysis %s (%s, %s)\n", out.AnalysisID, out.MediaType, out.Status)
	if len(out.ProvidersUsed) > 0 {
		fmt.Printf("providers: %s\n", strings.Join(out.ProvidersUsed, ", "))
	}
	if out.Note != "" {
		fmt.Printf("note: %s\n", out.Note)
	}
	for _, a := range out.Assessments {
		fmt.Printf("\n== %s ==\n%s\n", a.PersonLabel, a.Assessment.Summary)
	}
	if out.GroupDynamics != nil {
		fmt.Printf("\n== Group dynamics ==\n%s\n", out.GroupDynamics.Text)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
